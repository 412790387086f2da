package contract

import (
	"fmt"
	"strconv"
	"strings"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// InitArgs carries the optional seed scores in whole units.
type InitArgs struct {
	GenesisPresence   int64
	GenesisCompetence int64
	CooptPresence     int64
	CooptCompetence   int64
}

type CreateEventArgs struct {
	StartTime   int64
	Description string
}

type FinalizeEventArgs struct {
	EventID   uint64
	Attendees []sdk.Address
}

type UpdateCompetenceArgs struct {
	Member sdk.Address
	Delta  int64
}

type CreateProposalArgs struct {
	Type         dao.ProposalType
	VotingPeriod int64
	Action       dao.ProposalAction
	Target       sdk.Address
	Title        string
	Description  string
}

type VoteArgs struct {
	ProposalID uint64
	Support    bool
}

// -----------------------------------------------------------------------------
// Payload rendering for clients
// -----------------------------------------------------------------------------

// Payload renders `genesisP|genesisC|cooptP|cooptC`.
func (a InitArgs) Payload() string {
	return fmt.Sprintf("%d|%d|%d|%d", a.GenesisPresence, a.GenesisCompetence, a.CooptPresence, a.CooptCompetence)
}

func (a CreateEventArgs) Payload() string {
	return strconv.FormatInt(a.StartTime, 10) + "|" + a.Description
}

func (a FinalizeEventArgs) Payload() string {
	addrs := make([]string, len(a.Attendees))
	for i, addr := range a.Attendees {
		addrs[i] = addr.String()
	}
	return UInt64ToString(a.EventID) + "|" + strings.Join(addrs, ",")
}

func (a UpdateCompetenceArgs) Payload() string {
	return a.Member.String() + "|" + strconv.FormatInt(a.Delta, 10)
}

// Payload renders `type|period|action|target|title|description`.
func (a CreateProposalArgs) Payload() string {
	action := ""
	if a.Action != dao.ActionNone {
		action = a.Action.String()
	}
	return strings.Join([]string{
		a.Type.String(),
		strconv.FormatInt(a.VotingPeriod, 10),
		action,
		a.Target.String(),
		a.Title,
		a.Description,
	}, "|")
}

func (a VoteArgs) Payload() string {
	return UInt64ToString(a.ProposalID) + "|" + strconv.FormatBool(a.Support)
}

// -----------------------------------------------------------------------------
// Decoders
// -----------------------------------------------------------------------------

// unwrapPayload trims the payload and strips one layer of JSON string quoting.
func unwrapPayload(payload string) string {
	raw := strings.TrimSpace(payload)
	if len(raw) >= 2 {
		first := raw[0]
		last := raw[len(raw)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			if unquoted, err := strconv.Unquote(raw); err == nil {
				return unquoted
			}
			raw = strings.TrimSpace(raw[1 : len(raw)-1])
		}
	}
	return raw
}

func requirePayload(payload, errMsg string) (string, error) {
	raw := unwrapPayload(payload)
	if raw == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidInput, errMsg)
	}
	return raw, nil
}

// parseUintField trims the input and reports a friendly field name on errors.
func parseUintField(val string, field string) (uint64, error) {
	val = strings.TrimSpace(val)
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrInvalidInput, field, val)
	}
	return n, nil
}

func parseIntField(val string, field string) (int64, error) {
	val = strings.TrimSpace(val)
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrInvalidInput, field, val)
	}
	return n, nil
}

// parseSupportField is strict: unknown text is an error, not a silent "no".
func parseSupportField(val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "for":
		return true, nil
	case "0", "false", "no", "n", "against":
		return false, nil
	default:
		return false, fmt.Errorf("%w: invalid support %q", ErrInvalidInput, val)
	}
}

func parseAddressField(val string, field string) (sdk.Address, error) {
	addr, err := sdk.ParseAddress(val)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	return addr, nil
}

func decodeIDPayload(payload, field string) (uint64, error) {
	raw, err := requirePayload(payload, field+" required")
	if err != nil {
		return 0, err
	}
	return parseUintField(raw, field)
}

func decodeAddressPayload(payload, field string) (sdk.Address, error) {
	raw, err := requirePayload(payload, field+" required")
	if err != nil {
		return "", err
	}
	return parseAddressField(raw, field)
}

// decodeInitArgs accepts an empty payload (all seeds zero) or four integers.
func decodeInitArgs(payload string) (*InitArgs, error) {
	raw := unwrapPayload(payload)
	args := &InitArgs{}
	if raw == "" {
		return args, nil
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: init payload requires genesisP|genesisC|cooptP|cooptC", ErrInvalidInput)
	}
	fields := []*int64{&args.GenesisPresence, &args.GenesisCompetence, &args.CooptPresence, &args.CooptCompetence}
	for i, dst := range fields {
		v, err := parseIntField(parts[i], "seed score")
		if err != nil {
			return nil, err
		}
		if v < 0 || v > MaxSeedUnits {
			return nil, fmt.Errorf("%w: seed score %d out of range", ErrInvalidInput, v)
		}
		*dst = v
	}
	return args, nil
}

func decodeCreateEventArgs(payload string) (*CreateEventArgs, error) {
	raw, err := requirePayload(payload, "event payload missing")
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(raw, "|", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: event payload requires startTime|description", ErrInvalidInput)
	}
	start, err := parseIntField(parts[0], "start time")
	if err != nil {
		return nil, err
	}
	return &CreateEventArgs{StartTime: start, Description: strings.TrimSpace(parts[1])}, nil
}

func decodeFinalizeEventArgs(payload string) (*FinalizeEventArgs, error) {
	raw, err := requirePayload(payload, "finalize payload missing")
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(raw, "|", 2)
	id, err := parseUintField(parts[0], "event id")
	if err != nil {
		return nil, err
	}
	args := &FinalizeEventArgs{EventID: id, Attendees: []sdk.Address{}}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return args, nil
	}
	for _, item := range strings.Split(parts[1], ",") {
		addr, err := parseAddressField(item, "attendee")
		if err != nil {
			return nil, err
		}
		args.Attendees = append(args.Attendees, addr)
	}
	if len(args.Attendees) > MaxAttendanceListLength {
		return nil, fmt.Errorf("%w: attendance list exceeds %d entries", ErrInvalidInput, MaxAttendanceListLength)
	}
	return args, nil
}

func decodeUpdateCompetenceArgs(payload string) (*UpdateCompetenceArgs, error) {
	raw, err := requirePayload(payload, "competence payload missing")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: competence payload requires member|delta", ErrInvalidInput)
	}
	member, err := parseAddressField(parts[0], "member")
	if err != nil {
		return nil, err
	}
	delta, err := parseIntField(parts[1], "delta")
	if err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrInvalidInput)
	}
	return &UpdateCompetenceArgs{Member: member, Delta: delta}, nil
}

// decodeCreateProposalArgs splits the string payload; the description is last so it may contain pipes.
func decodeCreateProposalArgs(payload string) (*CreateProposalArgs, error) {
	raw, err := requirePayload(payload, "proposal payload missing")
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(raw, "|", 6)
	if len(parts) < 6 {
		return nil, fmt.Errorf("%w: proposal payload requires type|period|action|target|title|description", ErrInvalidInput)
	}
	pt, ok := dao.ParseProposalType(parts[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown proposal type %q", ErrInvalidInput, parts[0])
	}
	period, err := parseIntField(parts[1], "voting period")
	if err != nil {
		return nil, err
	}
	action, ok := dao.ParseProposalAction(parts[2])
	if !ok {
		return nil, fmt.Errorf("%w: unknown proposal action %q", ErrInvalidInput, parts[2])
	}
	args := &CreateProposalArgs{
		Type:         pt,
		VotingPeriod: period,
		Action:       action,
		Title:        strings.TrimSpace(parts[4]),
		Description:  strings.TrimSpace(parts[5]),
	}
	target := strings.TrimSpace(parts[3])
	switch {
	case action == dao.ActionNone && target != "":
		return nil, fmt.Errorf("%w: target given without an action", ErrInvalidInput)
	case action != dao.ActionNone:
		if args.Target, err = parseAddressField(target, "target"); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// decodeVoteArgs expects `proposalId|support`.
func decodeVoteArgs(payload string) (*VoteArgs, error) {
	raw, err := requirePayload(payload, "vote payload missing")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: vote payload requires proposalId|support", ErrInvalidInput)
	}
	id, err := parseUintField(parts[0], "proposal id")
	if err != nil {
		return nil, err
	}
	support, err := parseSupportField(parts[1])
	if err != nil {
		return nil, err
	}
	return &VoteArgs{ProposalID: id, Support: support}, nil
}
