package contract_test

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"presence_dao/contract"
	"presence_dao/contract/dao"
	"presence_dao/internal/store/memory"
	"presence_dao/sdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTimestamp int64 = 1_756_857_600 // 2025-09-03T00:00:00Z

// defaultSeeds mirrors the reference deployment: genesis 3/10, coopted 1/1.
const defaultSeeds = "3|10|1|1"

var (
	authority = addrFor("tibfox")
	alice     = addrFor("alice")
	bob       = addrFor("bob")
	carol     = addrFor("carol")
	dave      = addrFor("dave")
	outsider  = addrFor("outsider")
)

// addrFor derives a stable identity from a name so failures are reproducible.
func addrFor(name string) sdk.Address {
	seed := sha256.Sum256([]byte(name))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return sdk.AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
}

// ContractTest bundles an engine with its backing store and a tx counter.
type ContractTest struct {
	Engine *contract.Engine
	Store  *memory.Store
	seq    int
}

// SetupContractTest returns a fresh engine over an empty memory store.
func SetupContractTest() *ContractTest {
	st := memory.New()
	return &ContractTest{Engine: contract.NewEngine(st), Store: st}
}

// SetupGenesisDao initializes with the default seeds and adds alice, bob and carol.
func SetupGenesisDao(t *testing.T) *ContractTest {
	ct := SetupContractTest()
	CallContract(t, ct, contract.ActionInitialize, defaultSeeds, authority, true)
	for _, m := range []sdk.Address{alice, bob, carol} {
		CallContract(t, ct, contract.ActionAddGenesisMember, m.String(), authority, true)
	}
	return ct
}

// CallContract executes an action at the default timestamp and asserts the outcome.
func CallContract(t *testing.T, ct *ContractTest, action, payload string, sender sdk.Address, expectedResult bool) (*contract.Result, error) {
	return CallContractAt(t, ct, action, payload, sender, expectedResult, defaultTimestamp)
}

// CallContractAt lets tests override the timestamp for window checks.
func CallContractAt(t *testing.T, ct *ContractTest, action, payload string, sender sdk.Address, expectedResult bool, ts int64) (*contract.Result, error) {
	t.Helper()
	ct.seq++
	env := sdk.NewEnv(sender, ts, fmt.Sprintf("%s-tx-%d", action, ct.seq))
	res, err := ct.Engine.Execute(context.Background(), env, contract.Instruction{Action: action, Payload: payload})
	if expectedResult {
		require.NoError(t, err, "action %s failed", action)
	} else {
		assert.Error(t, err, "action %s did not fail (as expected)", action)
	}
	return res, err
}

func mustState(t *testing.T, ct *ContractTest) *dao.State {
	t.Helper()
	st, err := ct.Engine.State(context.Background())
	require.NoError(t, err)
	return st
}

func mustMember(t *testing.T, ct *ContractTest, addr sdk.Address) *dao.Member {
	t.Helper()
	m, err := ct.Engine.Member(context.Background(), addr)
	require.NoError(t, err)
	return m
}

// assertTotals checks the aggregate invariants against the member records.
func assertTotals(t *testing.T, ct *ContractTest) {
	t.Helper()
	st := mustState(t, ct)
	members, err := ct.Engine.Members(context.Background())
	require.NoError(t, err)
	var p, c dao.Score
	var active uint32
	for _, m := range members {
		p += m.PresenceScore
		c += m.CompetenceScore
		if m.IsActive {
			active++
		}
	}
	assert.Equal(t, st.TotalPresence, p, "total presence drifted")
	assert.Equal(t, st.TotalCompetence, c, "total competence drifted")
	assert.Equal(t, st.ActiveMembers, active, "active member count drifted")
	assert.Equal(t, st.MemberCount, uint32(len(members)))
}

// createEvent returns the id of a new event starting at start.
func createEvent(t *testing.T, ct *ContractTest, creator sdk.Address, start int64) uint64 {
	t.Helper()
	res, _ := CallContract(t, ct, contract.ActionCreateEvent, strconv.FormatInt(start, 10)+"|weekly track", creator, true)
	return res.ID
}

// createProposal submits a proposal with the minimum voting period.
func createProposal(t *testing.T, ct *ContractTest, proposer sdk.Address, args contract.CreateProposalArgs) uint64 {
	t.Helper()
	if args.VotingPeriod == 0 {
		args.VotingPeriod = contract.MinVotingPeriodSeconds
	}
	if args.Title == "" {
		args.Title = "test proposal"
	}
	res, _ := CallContract(t, ct, contract.ActionCreateProposal, args.Payload(), proposer, true)
	return res.ID
}

func votePayload(id uint64, support bool) string {
	return contract.VoteArgs{ProposalID: id, Support: support}.Payload()
}

func attendance(id uint64, addrs ...sdk.Address) string {
	return contract.FinalizeEventArgs{EventID: id, Attendees: addrs}.Payload()
}

func hasLog(res *contract.Result, prefix string) bool {
	for _, line := range res.Logs {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// coopt admits target through a passed critical proposal voted by alice and bob.
func coopt(t *testing.T, ct *ContractTest, target sdk.Address) {
	t.Helper()
	id := createProposal(t, ct, alice, contract.CreateProposalArgs{
		Type:   dao.ProposalCritical,
		Action: dao.ActionCoopt,
		Target: target,
		Title:  "coopt " + target.Short(),
	})
	CallContract(t, ct, contract.ActionVote, votePayload(id, true), alice, true)
	CallContract(t, ct, contract.ActionVote, votePayload(id, true), bob, true)
	res, _ := CallContractAt(t, ct, contract.ActionFinalizeProposal, contract.UInt64ToString(id), alice, true,
		defaultTimestamp+contract.MinVotingPeriodSeconds)
	require.Equal(t, "proposal passed", res.Ret)
	require.True(t, mustMember(t, ct, target).IsActive)
}
