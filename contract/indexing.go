package contract

// maintaining index keys for iterating members and registrants

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// index key prefixes
const (
	maxChunkSize        = 2500     // all indexes are split into chunks of X entries to keep a single value small
	idxMembers          = "idx:m"  // holds every member address ever added
	idxEventRegistrants = "idx:r:" // + eventId		// holds every address that registered for an event
)

func eventRegistrantsIndex(eventID uint64) string {
	return idxEventRegistrants + UInt64ToString(eventID)
}

// chunkCounterKey stores the number of chunks for a base index.
func chunkCounterKey(base string) string {
	return base + ":chunks"
}

func chunkKey(base string, chunk int) string {
	return base + ":" + strconv.Itoa(chunk)
}

// get number of chunks for an index
func getChunkCount(s State, baseKey string) (int, error) {
	ptr, err := s.Get(chunkCounterKey(baseKey))
	if err != nil {
		return 0, err
	}
	if ptr == nil || *ptr == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(*ptr)
	if err != nil {
		return 0, fmt.Errorf("index %s: bad chunk count: %w", baseKey, err)
	}
	return n, nil
}

func readChunk(s State, key string) ([]string, error) {
	ptr, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	var entries []string
	if err := json.Unmarshal([]byte(*ptr), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal index %s: %w", key, err)
	}
	return entries, nil
}

func writeChunk(s State, key string, entries []string) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal index %s: %w", key, err)
	}
	s.Set(key, string(b))
	return nil
}

// addToIndex ensures entry exists across all chunks (no duplicates).
func addToIndex(s State, baseKey, entry string) error {
	chunks, err := getChunkCount(s, baseKey)
	if err != nil {
		return err
	}
	for i := 0; i < chunks; i++ {
		key := chunkKey(baseKey, i)
		entries, err := readChunk(s, key)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e == entry {
				return nil
			}
		}
		// append if space, only the last chunk can have room
		if i == chunks-1 && len(entries) < maxChunkSize {
			return writeChunk(s, key, append(entries, entry))
		}
	}
	// no space -> create new chunk
	if err := writeChunk(s, chunkKey(baseKey, chunks), []string{entry}); err != nil {
		return err
	}
	s.Set(chunkCounterKey(baseKey), strconv.Itoa(chunks+1))
	return nil
}

// listIndex collects all entries across all chunks in insertion order.
func listIndex(s State, baseKey string) ([]string, error) {
	all := []string{}
	chunks, err := getChunkCount(s, baseKey)
	if err != nil {
		return nil, err
	}
	for i := 0; i < chunks; i++ {
		entries, err := readChunk(s, chunkKey(baseKey, i))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}
