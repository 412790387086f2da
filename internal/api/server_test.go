package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"presence_dao/contract"
	"presence_dao/internal/notify"
	"presence_dao/internal/store/memory"
	"presence_dao/sdk"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Unix(1_756_857_600, 0)

func keyFor(name string) (ed25519.PrivateKey, sdk.Address) {
	seed := sha256.Sum256([]byte(name))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, sdk.AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Publish(_ context.Context, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) Close() error { return nil }

type apiTest struct {
	handler http.Handler
	pub     *recorder
}

func setupAPI(t *testing.T) *apiTest {
	t.Helper()
	pub := &recorder{}
	srv := NewServer(contract.NewEngine(memory.New()),
		WithPublisher(pub),
		WithClock(func() time.Time { return clock }),
	)
	return &apiTest{handler: srv.NewRouter(), pub: pub}
}

func (at *apiTest) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	at.handler.ServeHTTP(rec, req)
	return rec
}

func (at *apiTest) get(t *testing.T, path string, out any) int {
	t.Helper()
	rec := at.do(httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func txRequest(token string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/tx", strings.NewReader(string(body)))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// send signs and posts one instruction.
func (at *apiTest) send(t *testing.T, signer string, action, payload string) *httptest.ResponseRecorder {
	t.Helper()
	priv, _ := keyFor(signer)
	token, body, err := SignInstruction(priv, contract.Instruction{Action: action, Payload: payload}, uuid.NewString(), clock, time.Minute)
	require.NoError(t, err)
	return at.do(txRequest(token, body))
}

func bootGenesis(t *testing.T, at *apiTest) {
	t.Helper()
	rec := at.send(t, "tibfox", contract.ActionInitialize, "3|10|1|1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, name := range []string{"alice", "bob", "carol"} {
		_, addr := keyFor(name)
		rec := at.send(t, "tibfox", contract.ActionAddGenesisMember, addr.String())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

// =============================================================================
// Transactions
// =============================================================================

func TestTxExecutesAndPublishes(t *testing.T) {
	at := setupAPI(t)
	bootGenesis(t, at)

	require.Len(t, at.pub.msgs, 4)
	_, authority := keyFor("tibfox")
	assert.Equal(t, contract.ActionInitialize, at.pub.msgs[0].Action)
	assert.Equal(t, authority.String(), at.pub.msgs[0].Sender)
	assert.Equal(t, clock.Unix(), at.pub.msgs[0].Timestamp)

	var st map[string]any
	require.Equal(t, http.StatusOK, at.get(t, "/api/state", &st))
	assert.EqualValues(t, 3, st["member_count"])
	assert.Equal(t, "9.000000000", st["total_presence"])
	assert.Equal(t, false, st["frozen"])

	_, alice := keyFor("alice")
	var power map[string]string
	require.Equal(t, http.StatusOK, at.get(t, "/api/members/"+alice.String()+"/power", &power))
	assert.Equal(t, "0.111111111", power["voting_power"])

	var members []map[string]any
	require.Equal(t, http.StatusOK, at.get(t, "/api/members", &members))
	assert.Len(t, members, 3)
}

func TestTxResultBody(t *testing.T) {
	at := setupAPI(t)
	bootGenesis(t, at)

	rec := at.send(t, "alice", contract.ActionCreateEvent, "1756861200|weekly sync")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res contract.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, contract.ActionCreateEvent, res.Action)
	assert.NotEmpty(t, res.TxID)
	assert.NotEmpty(t, res.Logs)

	var ev map[string]any
	require.Equal(t, http.StatusOK, at.get(t, "/api/events/0", &ev))
	assert.Equal(t, "weekly sync", ev["description"])
}

func TestTxContractErrors(t *testing.T) {
	at := setupAPI(t)
	bootGenesis(t, at)

	rec := at.send(t, "alice", contract.ActionRegisterForEvent, "5")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NotFound", body.Code)

	rec = at.send(t, "alice", contract.ActionCreateEvent, "not-a-payload")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = at.send(t, "tibfox", contract.ActionInitialize, "3|10|1|1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// failed instructions are not broadcast
	assert.Len(t, at.pub.msgs, 4)
}

// =============================================================================
// Token checks
// =============================================================================

func TestTokenRejections(t *testing.T) {
	at := setupAPI(t)
	priv, alice := keyFor("alice")
	ix := contract.Instruction{Action: contract.ActionInitialize, Payload: "3|10|1|1"}

	t.Run("missing bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tx", strings.NewReader("{}"))
		assert.Equal(t, http.StatusUnauthorized, at.do(req).Code)
	})

	t.Run("body swapped", func(t *testing.T) {
		token, _, err := SignInstruction(priv, ix, "tx-swap", clock, time.Minute)
		require.NoError(t, err)
		other, _ := json.Marshal(contract.Instruction{Action: contract.ActionInitialize, Payload: "0|0|0|0"})
		assert.Equal(t, http.StatusUnauthorized, at.do(txRequest(token, other)).Code)
	})

	t.Run("expiry too far ahead", func(t *testing.T) {
		token, body, err := SignInstruction(priv, ix, "tx-far", clock, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, at.do(txRequest(token, body)).Code)
	})

	t.Run("expired", func(t *testing.T) {
		token, body, err := SignInstruction(priv, ix, "tx-old", clock.Add(-10*time.Minute), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, at.do(txRequest(token, body)).Code)
	})

	t.Run("signed by someone else", func(t *testing.T) {
		mallory, _ := keyFor("mallory")
		body, _ := json.Marshal(ix)
		claims := TxClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   alice.String(),
				ID:        "tx-forged",
				IssuedAt:  jwt.NewNumericDate(clock),
				ExpiresAt: jwt.NewNumericDate(clock.Add(time.Minute)),
			},
			BodyHash: BodyHash(body),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(mallory)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, at.do(txRequest(token, body)).Code)
	})

	assert.Empty(t, at.pub.msgs)
}

type brokenBody struct{}

func (brokenBody) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestTxBodyErrors(t *testing.T) {
	at := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tx", brokenBody{})
	req.Header.Set("Authorization", "Bearer whatever")
	rec := at.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "read body")

	rec = at.do(txRequest("whatever", bytes.Repeat([]byte("x"), maxBodyBytes+1)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReplayedTokenRejected(t *testing.T) {
	at := setupAPI(t)
	priv, _ := keyFor("tibfox")
	token, body, err := SignInstruction(priv, contract.Instruction{Action: contract.ActionInitialize, Payload: "3|10|1|1"}, "tx-once", clock, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, at.do(txRequest(token, body)).Code)
	rec := at.do(txRequest(token, body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "already used")
}

func TestVerifierForgetsExpiredIDs(t *testing.T) {
	now := clock
	v := newVerifier(5*time.Minute, func() time.Time { return now })
	priv, _ := keyFor("alice")

	token, body, err := SignInstruction(priv, contract.Instruction{Action: "vote", Payload: "0|true"}, "tx-1", now, time.Minute)
	require.NoError(t, err)
	_, err = v.verify(token, body)
	require.NoError(t, err)
	assert.Equal(t, 1, v.seen.Size())

	now = now.Add(2 * time.Minute)
	token, body, err = SignInstruction(priv, contract.Instruction{Action: "vote", Payload: "1|true"}, "tx-2", now, time.Minute)
	require.NoError(t, err)
	claims, err := v.verify(token, body)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", claims.ID)
	assert.Equal(t, 1, v.seen.Size())
}

// =============================================================================
// Views
// =============================================================================

func TestViewErrors(t *testing.T) {
	at := setupAPI(t)
	bootGenesis(t, at)

	var body errorResponse
	assert.Equal(t, http.StatusNotFound, at.get(t, "/api/events/7", &body))
	assert.Equal(t, "NotFound", body.Code)
	assert.Equal(t, http.StatusBadRequest, at.get(t, "/api/events/abc", &body))
	assert.Equal(t, http.StatusBadRequest, at.get(t, "/api/members/not-an-address", &body))

	_, dave := keyFor("dave")
	assert.Equal(t, http.StatusNotFound, at.get(t, "/api/members/"+dave.String(), &body))
	assert.Equal(t, http.StatusNotFound, at.get(t, "/api/proposals/0", &body))
}

func TestAccountView(t *testing.T) {
	at := setupAPI(t)
	var out map[string]string
	require.Equal(t, http.StatusOK, at.get(t, "/api/accounts/event?id=4", &out))

	want, err := contract.DeriveAccount(contract.SaltFor(contract.DefaultProgramID), contract.AccountEvent, 4, "")
	require.NoError(t, err)
	assert.Equal(t, want.String(), out["address"])

	var body errorResponse
	assert.Equal(t, http.StatusBadRequest, at.get(t, "/api/accounts/member", &body))
	assert.Equal(t, http.StatusBadRequest, at.get(t, "/api/accounts/ledger", &body))
	assert.Equal(t, http.StatusBadRequest, at.get(t, "/api/accounts/event?id=-1", &body))
}

func TestHealth(t *testing.T) {
	at := setupAPI(t)
	var out map[string]string
	require.Equal(t, http.StatusOK, at.get(t, "/api/health", &out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, contract.DefaultProgramID, out["program_id"])
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		"NotFound":               http.StatusNotFound,
		"Unauthorized":           http.StatusForbidden,
		"UnauthorizedMembership": http.StatusForbidden,
		"InvalidInput":           http.StatusBadRequest,
		"ArithmeticOverflow":     http.StatusUnprocessableEntity,
		"Internal":               http.StatusInternalServerError,
		"VotingClosed":           http.StatusConflict,
		"DaoFrozen":              http.StatusConflict,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), code)
	}
}
