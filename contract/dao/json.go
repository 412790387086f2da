package dao

import (
	"encoding/hex"

	"github.com/CosmWasm/tinyjson/jwriter"
)

// JSON renderings for views and the HTTP API. Scores are printed as decimal
// strings so clients never lose precision in float parsing.

func writeScoreField(w *jwriter.Writer, name string, s Score, first bool) {
	if !first {
		w.RawByte(',')
	}
	w.RawString(`"` + name + `":`)
	w.String(s.String())
}

func writeStringField(w *jwriter.Writer, name, v string, first bool) {
	if !first {
		w.RawByte(',')
	}
	w.RawString(`"` + name + `":`)
	w.String(v)
}

func writeInt64Field(w *jwriter.Writer, name string, v int64) {
	w.RawString(`,"` + name + `":`)
	w.Int64(v)
}

func writeUint64Field(w *jwriter.Writer, name string, v uint64) {
	w.RawString(`,"` + name + `":`)
	w.Uint64(v)
}

func writeBoolField(w *jwriter.Writer, name string, v bool) {
	w.RawString(`,"` + name + `":`)
	w.Bool(v)
}

func (st State) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	writeStringField(w, "authority", st.Authority.String(), true)
	writeScoreField(w, "total_presence", st.TotalPresence, false)
	writeScoreField(w, "total_competence", st.TotalCompetence, false)
	writeUint64Field(w, "active_members", uint64(st.ActiveMembers))
	writeUint64Field(w, "member_count", uint64(st.MemberCount))
	writeUint64Field(w, "genesis_count", uint64(st.GenesisCount))
	writeUint64Field(w, "event_counter", st.EventCounter)
	writeUint64Field(w, "proposal_counter", st.ProposalCounter)
	writeStringField(w, "salt", hex.EncodeToString(st.Salt[:]), false)
	writeScoreField(w, "genesis_presence", st.GenesisPresence, false)
	writeScoreField(w, "genesis_competence", st.GenesisCompetence, false)
	writeScoreField(w, "coopt_presence", st.CooptPresence, false)
	writeScoreField(w, "coopt_competence", st.CooptCompetence, false)
	writeInt64Field(w, "initialized_at", st.InitializedAt)
	writeBoolField(w, "frozen", st.ActiveMembers < 3)
	w.RawByte('}')
}

func (st State) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	st.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

func (m Member) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	writeStringField(w, "authority", m.Authority.String(), true)
	writeScoreField(w, "presence_score", m.PresenceScore, false)
	writeScoreField(w, "competence_score", m.CompetenceScore, false)
	writeBoolField(w, "is_active", m.IsActive)
	writeBoolField(w, "is_genesis", m.IsGenesis)
	writeInt64Field(w, "joined_at", m.JoinedAt)
	w.RawByte('}')
}

func (m Member) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	m.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

func (ev Event) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(ev.ID)
	writeStringField(w, "creator", ev.Creator.String(), false)
	writeInt64Field(w, "start_time", ev.StartTime)
	writeStringField(w, "description", ev.Description, false)
	writeBoolField(w, "is_finalized", ev.IsFinalized)
	writeUint64Field(w, "registered_count", uint64(ev.RegisteredCount))
	writeUint64Field(w, "attended_count", uint64(ev.AttendedCount))
	writeInt64Field(w, "created_at", ev.CreatedAt)
	w.RawByte('}')
}

func (ev Event) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	ev.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

func (reg Registration) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"event_id":`)
	w.Uint64(reg.EventID)
	writeStringField(w, "member", reg.Member.String(), false)
	writeBoolField(w, "is_registered", reg.IsRegistered)
	writeBoolField(w, "has_attended", reg.HasAttended)
	writeBoolField(w, "is_late", reg.IsLate)
	writeInt64Field(w, "registered_at", reg.RegisteredAt)
	w.RawByte('}')
}

func (reg Registration) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	reg.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

func (prpsl Proposal) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.Uint64(prpsl.ID)
	writeStringField(w, "proposer", prpsl.Proposer.String(), false)
	writeStringField(w, "title", prpsl.Title, false)
	writeStringField(w, "description", prpsl.Description, false)
	writeStringField(w, "type", prpsl.Type.String(), false)
	writeScoreField(w, "votes_for", prpsl.VotesFor, false)
	writeScoreField(w, "votes_against", prpsl.VotesAgainst, false)
	writeScoreField(w, "total_power_snapshot", prpsl.TotalPowerSnapshot, false)
	writeInt64Field(w, "created_at", prpsl.CreatedAt)
	writeInt64Field(w, "voting_ends_at", prpsl.VotingEndsAt)
	writeStringField(w, "status", prpsl.Status.String(), false)
	writeStringField(w, "action", prpsl.Action.String(), false)
	if prpsl.Action != ActionNone {
		writeStringField(w, "target", prpsl.Target.String(), false)
		writeBoolField(w, "action_applied", prpsl.ActionApplied)
	}
	if prpsl.FinalizedAt != 0 {
		writeInt64Field(w, "finalized_at", prpsl.FinalizedAt)
	}
	w.RawByte('}')
}

func (prpsl Proposal) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	prpsl.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

func (v VoteRecord) MarshalTinyJSON(w *jwriter.Writer) {
	w.RawString(`{"proposal_id":`)
	w.Uint64(v.ProposalID)
	writeStringField(w, "voter", v.Voter.String(), false)
	writeBoolField(w, "support", v.Support)
	writeScoreField(w, "weight", v.Weight, false)
	writeBoolField(w, "has_voted", v.HasVoted)
	writeInt64Field(w, "voted_at", v.VotedAt)
	w.RawByte('}')
}

func (v VoteRecord) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	v.MarshalTinyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}
