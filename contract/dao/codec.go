package dao

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"presence_dao/sdk"
)

// recordVersion prefixes every encoded record so layouts can evolve.
const recordVersion byte = 1

var (
	ErrUnexpectedEOF   = errors.New("unexpected EOF")
	ErrUnknownVersion  = errors.New("unknown record version")
	ErrTrailingBytes   = errors.New("trailing bytes after record")
	errInvalidVarUint  = errors.New("invalid varuint")
	errStringTooLong   = errors.New("string exceeds record limit")
	errInvalidBoolByte = errors.New("invalid bool byte")
)

// maxStringLen bounds any length-prefixed field so a corrupt prefix cannot
// trigger a huge allocation.
const maxStringLen = 4096

type binWriter struct {
	buf bytes.Buffer
}

func newWriter() *binWriter {
	w := &binWriter{}
	w.buf.WriteByte(recordVersion)
	return w
}

func (w *binWriter) bytes() []byte { return w.buf.Bytes() }

func (w *binWriter) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *binWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *binWriter) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

func (w *binWriter) writeScore(v Score) {
	w.writeInt64(int64(v))
}

func (w *binWriter) writeVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *binWriter) writeString(s string) {
	w.writeVarUint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *binWriter) writeAddress(a sdk.Address) {
	w.writeString(a.String())
}

// ------------------------------------------------------------------
// Encoders
// ------------------------------------------------------------------

// EncodeState serializes the singleton governance record.
func EncodeState(st *State) []byte {
	w := newWriter()
	w.writeAddress(st.Authority)
	w.writeScore(st.TotalPresence)
	w.writeScore(st.TotalCompetence)
	w.writeUint32(st.ActiveMembers)
	w.writeUint32(st.MemberCount)
	w.writeByte(st.GenesisCount)
	w.writeUint64(st.EventCounter)
	w.writeUint64(st.ProposalCounter)
	w.buf.Write(st.Salt[:])
	w.writeScore(st.GenesisPresence)
	w.writeScore(st.GenesisCompetence)
	w.writeScore(st.CooptPresence)
	w.writeScore(st.CooptCompetence)
	w.writeInt64(st.InitializedAt)
	return w.bytes()
}

func EncodeMember(m *Member) []byte {
	w := newWriter()
	w.writeAddress(m.Authority)
	w.writeScore(m.PresenceScore)
	w.writeScore(m.CompetenceScore)
	w.writeBool(m.IsActive)
	w.writeBool(m.IsGenesis)
	w.writeInt64(m.JoinedAt)
	return w.bytes()
}

func EncodeEvent(ev *Event) []byte {
	w := newWriter()
	w.writeUint64(ev.ID)
	w.writeAddress(ev.Creator)
	w.writeInt64(ev.StartTime)
	w.writeString(ev.Description)
	w.writeBool(ev.IsFinalized)
	w.writeUint32(ev.RegisteredCount)
	w.writeUint32(ev.AttendedCount)
	w.writeInt64(ev.CreatedAt)
	return w.bytes()
}

func EncodeRegistration(reg *Registration) []byte {
	w := newWriter()
	w.writeUint64(reg.EventID)
	w.writeAddress(reg.Member)
	w.writeBool(reg.IsRegistered)
	w.writeBool(reg.HasAttended)
	w.writeBool(reg.IsLate)
	w.writeInt64(reg.RegisteredAt)
	return w.bytes()
}

// EncodeProposal serializes a proposal.
func EncodeProposal(prpsl *Proposal) []byte {
	w := newWriter()
	w.writeUint64(prpsl.ID)
	w.writeAddress(prpsl.Proposer)
	w.writeString(prpsl.Title)
	w.writeString(prpsl.Description)
	w.writeByte(byte(prpsl.Type))
	w.writeScore(prpsl.VotesFor)
	w.writeScore(prpsl.VotesAgainst)
	w.writeScore(prpsl.TotalPowerSnapshot)
	w.writeInt64(prpsl.CreatedAt)
	w.writeInt64(prpsl.VotingEndsAt)
	w.writeByte(byte(prpsl.Status))
	w.writeByte(byte(prpsl.Action))
	w.writeAddress(prpsl.Target)
	w.writeBool(prpsl.ActionApplied)
	w.writeInt64(prpsl.FinalizedAt)
	return w.bytes()
}

func EncodeVoteRecord(v *VoteRecord) []byte {
	w := newWriter()
	w.writeUint64(v.ProposalID)
	w.writeAddress(v.Voter)
	w.writeBool(v.Support)
	w.writeScore(v.Weight)
	w.writeBool(v.HasVoted)
	w.writeInt64(v.VotedAt)
	return w.bytes()
}

// ------------------------------------------------------------------
// Decoder helpers
// ------------------------------------------------------------------

type binReader struct {
	data []byte
	pos  int
}

// newReader consumes and checks the version prefix.
func newReader(data []byte) (*binReader, error) {
	r := &binReader{data: data}
	v, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if v != recordVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, v)
	}
	return r, nil
}

// done fails when bytes remain after the last field.
func (r *binReader) done() error {
	if r.pos != len(r.data) {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, len(r.data)-r.pos)
	}
	return nil
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errInvalidBoolByte
	}
}

func (r *binReader) readUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	val := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return val, nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	val := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return val, nil
}

func (r *binReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (r *binReader) readScore() (Score, error) {
	v, err := r.readInt64()
	if err != nil {
		return 0, err
	}
	return Score(v), nil
}

func (r *binReader) readVarUint() (uint64, error) {
	val, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		if n == 0 {
			return 0, ErrUnexpectedEOF
		}
		return 0, errInvalidVarUint
	}
	r.pos += n
	return val, nil
}

func (r *binReader) readString() (string, error) {
	l, err := r.readVarUint()
	if err != nil {
		return "", err
	}
	if l > maxStringLen {
		return "", errStringTooLong
	}
	if r.pos+int(l) > len(r.data) {
		return "", ErrUnexpectedEOF
	}
	s := string(r.data[r.pos : r.pos+int(l)])
	r.pos += int(l)
	return s, nil
}

func (r *binReader) readAddress() (sdk.Address, error) {
	s, err := r.readString()
	if err != nil {
		return "", err
	}
	return sdk.Address(s), nil
}

// ------------------------------------------------------------------
// Decoders
// ------------------------------------------------------------------

func DecodeState(data []byte) (*State, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	st := &State{}
	if st.Authority, err = r.readAddress(); err != nil {
		return nil, err
	}
	if st.TotalPresence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.TotalCompetence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.ActiveMembers, err = r.readUint32(); err != nil {
		return nil, err
	}
	if st.MemberCount, err = r.readUint32(); err != nil {
		return nil, err
	}
	if st.GenesisCount, err = r.readByte(); err != nil {
		return nil, err
	}
	if st.EventCounter, err = r.readUint64(); err != nil {
		return nil, err
	}
	if st.ProposalCounter, err = r.readUint64(); err != nil {
		return nil, err
	}
	if r.pos+len(st.Salt) > len(r.data) {
		return nil, ErrUnexpectedEOF
	}
	copy(st.Salt[:], r.data[r.pos:r.pos+len(st.Salt)])
	r.pos += len(st.Salt)
	if st.GenesisPresence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.GenesisCompetence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.CooptPresence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.CooptCompetence, err = r.readScore(); err != nil {
		return nil, err
	}
	if st.InitializedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	if st.ActiveMembers > st.MemberCount {
		return nil, fmt.Errorf("state: active members %d exceed member count %d", st.ActiveMembers, st.MemberCount)
	}
	return st, r.done()
}

func DecodeMember(data []byte) (*Member, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	m := &Member{}
	if m.Authority, err = r.readAddress(); err != nil {
		return nil, err
	}
	if m.PresenceScore, err = r.readScore(); err != nil {
		return nil, err
	}
	if m.CompetenceScore, err = r.readScore(); err != nil {
		return nil, err
	}
	if m.IsActive, err = r.readBool(); err != nil {
		return nil, err
	}
	if m.IsGenesis, err = r.readBool(); err != nil {
		return nil, err
	}
	if m.JoinedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return m, r.done()
}

func DecodeEvent(data []byte) (*Event, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	ev := &Event{}
	if ev.ID, err = r.readUint64(); err != nil {
		return nil, err
	}
	if ev.Creator, err = r.readAddress(); err != nil {
		return nil, err
	}
	if ev.StartTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	if ev.Description, err = r.readString(); err != nil {
		return nil, err
	}
	if ev.IsFinalized, err = r.readBool(); err != nil {
		return nil, err
	}
	if ev.RegisteredCount, err = r.readUint32(); err != nil {
		return nil, err
	}
	if ev.AttendedCount, err = r.readUint32(); err != nil {
		return nil, err
	}
	if ev.CreatedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return ev, r.done()
}

func DecodeRegistration(data []byte) (*Registration, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	reg := &Registration{}
	if reg.EventID, err = r.readUint64(); err != nil {
		return nil, err
	}
	if reg.Member, err = r.readAddress(); err != nil {
		return nil, err
	}
	if reg.IsRegistered, err = r.readBool(); err != nil {
		return nil, err
	}
	if reg.HasAttended, err = r.readBool(); err != nil {
		return nil, err
	}
	if reg.IsLate, err = r.readBool(); err != nil {
		return nil, err
	}
	if reg.RegisteredAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return reg, r.done()
}

func DecodeProposal(data []byte) (*Proposal, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	prpsl := &Proposal{}
	if prpsl.ID, err = r.readUint64(); err != nil {
		return nil, err
	}
	if prpsl.Proposer, err = r.readAddress(); err != nil {
		return nil, err
	}
	if prpsl.Title, err = r.readString(); err != nil {
		return nil, err
	}
	if prpsl.Description, err = r.readString(); err != nil {
		return nil, err
	}
	b, err := r.readByte()
	if err != nil {
		return nil, err
	}
	prpsl.Type = ProposalType(b)
	if prpsl.Type != ProposalCritical && prpsl.Type != ProposalOperational {
		return nil, fmt.Errorf("proposal: invalid type %d", b)
	}
	if prpsl.VotesFor, err = r.readScore(); err != nil {
		return nil, err
	}
	if prpsl.VotesAgainst, err = r.readScore(); err != nil {
		return nil, err
	}
	if prpsl.TotalPowerSnapshot, err = r.readScore(); err != nil {
		return nil, err
	}
	if prpsl.CreatedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	if prpsl.VotingEndsAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	if b, err = r.readByte(); err != nil {
		return nil, err
	}
	prpsl.Status = ProposalStatus(b)
	if prpsl.Status < ProposalActive || prpsl.Status > ProposalCancelled {
		return nil, fmt.Errorf("proposal: invalid status %d", b)
	}
	if b, err = r.readByte(); err != nil {
		return nil, err
	}
	prpsl.Action = ProposalAction(b)
	if prpsl.Action > ActionReactivate {
		return nil, fmt.Errorf("proposal: invalid action %d", b)
	}
	if prpsl.Target, err = r.readAddress(); err != nil {
		return nil, err
	}
	if prpsl.ActionApplied, err = r.readBool(); err != nil {
		return nil, err
	}
	if prpsl.FinalizedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return prpsl, r.done()
}

func DecodeVoteRecord(data []byte) (*VoteRecord, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	v := &VoteRecord{}
	if v.ProposalID, err = r.readUint64(); err != nil {
		return nil, err
	}
	if v.Voter, err = r.readAddress(); err != nil {
		return nil, err
	}
	if v.Support, err = r.readBool(); err != nil {
		return nil, err
	}
	if v.Weight, err = r.readScore(); err != nil {
		return nil, err
	}
	if v.HasVoted, err = r.readBool(); err != nil {
		return nil, err
	}
	if v.VotedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return v, r.done()
}
