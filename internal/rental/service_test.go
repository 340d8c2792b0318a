package rental

import (
	"context"
	"database/sql"
	"testing"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/database"
	"rent-ledger-go/internal/events"
	"rent-ledger-go/internal/models"
	"rent-ledger-go/internal/store"
	"rent-ledger-go/internal/token"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenant   = "tenant-1"
	testLandlord = "landlord-1"
	testAgent    = "agent-1"
	testToken    = "USDC"
)

type testHarness struct {
	service  *Service
	store    store.Store
	tokens   token.Service
	recorder *events.Recorder
}

func setupTestService(t *testing.T) (*testHarness, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	st, err := database.NewServiceFromDB(db)
	require.NoError(t, err)

	tokens := token.NewService()
	recorder := &events.Recorder{}
	service := NewService(st, tokens, authz.ContextVerifier{}, recorder)

	return &testHarness{
		service:  service,
		store:    st,
		tokens:   tokens,
		recorder: recorder,
	}, func() { db.Close() }
}

// fundTenant credits the tenant so transfers can settle.
func (h *testHarness) fundTenant(t *testing.T, amount int64) {
	t.Helper()
	ctx := context.Background()
	err := h.store.Update(ctx, func(tx store.Tx) error {
		return h.tokens.Mint(ctx, tx, testToken, testTenant, decimal.NewFromInt(amount))
	})
	require.NoError(t, err)
}

func (h *testHarness) balance(t *testing.T, principal string) int64 {
	t.Helper()
	balance, err := h.tokens.Balance(context.Background(), h.store, testToken, principal)
	require.NoError(t, err)
	return balance.IntPart()
}

func defaultParams(id string) CreateAgreementParams {
	return CreateAgreementParams{
		AgreementID:     id,
		Landlord:        testLandlord,
		Tenant:          testTenant,
		MonthlyRent:     1000,
		SecurityDeposit: 2000,
		StartDate:       100,
		EndDate:         200,
		CommissionRate:  0,
	}
}

// callerCtx proves both tenant and landlord identities, which most
// lifecycle tests need (tenant creates, landlord activates).
func callerCtx() context.Context {
	return authz.WithCaller(context.Background(), testTenant, testLandlord)
}

func (h *testHarness) createActive(t *testing.T, params CreateAgreementParams) {
	t.Helper()
	ctx := callerCtx()
	require.NoError(t, h.service.CreateAgreement(ctx, params))
	require.NoError(t, h.service.UpdateStatus(ctx, params.AgreementID, models.StatusActive))
}

func TestCreateAgreement(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	err := h.service.CreateAgreement(ctx, defaultParams("AGR_001"))
	require.NoError(t, err)

	agreement, ok, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StatusDraft, agreement.Status)
	assert.Equal(t, int64(0), agreement.TotalRentPaid)
	assert.Equal(t, uint32(0), agreement.PaymentCount)
	assert.Equal(t, testTenant, agreement.Tenant)
	assert.Equal(t, testLandlord, agreement.Landlord)

	has, err := h.service.HasAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	assert.True(t, has)

	count, err := h.service.GetAgreementCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	recorded := h.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.TopicAgreementCreated, recorded[0].Topic)
	assert.Equal(t, events.AgreementCreated{AgreementID: "AGR_001"}, recorded[0].Payload)
}

func TestCreateAgreementRequiresTenantAuthorization(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()

	// The landlord alone cannot obligate the tenant.
	ctx := authz.WithCaller(context.Background(), testLandlord)
	err := h.service.CreateAgreement(ctx, defaultParams("AGR_001"))
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	has, err := h.service.HasAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	assert.False(t, has)

	count, err := h.service.GetAgreementCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

func TestCreateAgreementRejectsInvalidParams(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	params := defaultParams("AGR_001")
	params.MonthlyRent = -100
	assert.ErrorIs(t, h.service.CreateAgreement(ctx, params), ErrInvalidAmount)

	params = defaultParams("AGR_001")
	params.StartDate, params.EndDate = 200, 100
	assert.ErrorIs(t, h.service.CreateAgreement(ctx, params), ErrInvalidDate)

	params = defaultParams("AGR_001")
	params.CommissionRate = 10_001
	assert.ErrorIs(t, h.service.CreateAgreement(ctx, params), ErrInvalidCommissionRate)

	// No failed attempt may leave state behind.
	count, err := h.service.GetAgreementCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

func TestCreateAgreementRejectsDuplicateID(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	require.NoError(t, h.service.CreateAgreement(ctx, defaultParams("AGR_001")))

	second := defaultParams("AGR_001")
	second.MonthlyRent = 9999
	err := h.service.CreateAgreement(ctx, second)
	assert.ErrorIs(t, err, ErrAgreementExists)

	// The first agreement is preserved unchanged.
	agreement, ok, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1000), agreement.MonthlyRent)

	count, err := h.service.GetAgreementCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
}

func TestUpdateStatus(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	require.NoError(t, h.service.CreateAgreement(ctx, defaultParams("AGR_001")))

	t.Run("requires landlord authorization", func(t *testing.T) {
		tenantOnly := authz.WithCaller(context.Background(), testTenant)
		err := h.service.UpdateStatus(tenantOnly, "AGR_001", models.StatusActive)
		assert.ErrorIs(t, err, authz.ErrUnauthorized)
	})

	t.Run("follows the lifecycle table", func(t *testing.T) {
		require.NoError(t, h.service.UpdateStatus(ctx, "AGR_001", models.StatusActive))

		// Active cannot go back to draft.
		err := h.service.UpdateStatus(ctx, "AGR_001", models.StatusDraft)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		require.NoError(t, h.service.UpdateStatus(ctx, "AGR_001", models.StatusCompleted))

		// Completed is terminal.
		err = h.service.UpdateStatus(ctx, "AGR_001", models.StatusActive)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown agreement", func(t *testing.T) {
		err := h.service.UpdateStatus(ctx, "AGR_404", models.StatusActive)
		assert.ErrorIs(t, err, ErrAgreementNotFound)
	})
}

func TestPayRentWithoutAgent(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	h.createActive(t, defaultParams("AGR_001"))
	h.fundTenant(t, 5000)

	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))
	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))

	agreement, ok, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2000), agreement.TotalRentPaid)
	assert.Equal(t, uint32(2), agreement.PaymentCount)

	// Two distinct records at sequence numbers 1 and 2.
	for n := uint32(1); n <= 2; n++ {
		record, err := h.service.GetPaymentRecord(ctx, "AGR_001", n)
		require.NoError(t, err)
		assert.Equal(t, n, record.PaymentNumber)
		assert.Equal(t, int64(1000), record.Amount)
		assert.Equal(t, int64(1000), record.LandlordAmount)
		assert.Equal(t, int64(0), record.AgentAmount)
		assert.Equal(t, testTenant, record.Tenant)
	}

	assert.Equal(t, int64(3000), h.balance(t, testTenant))
	assert.Equal(t, int64(2000), h.balance(t, testLandlord))

	count, err := h.service.GetPaymentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
}

func TestPayRentSplitsCommission(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	params := defaultParams("AGR_001")
	params.Agent = testAgent
	params.CommissionRate = 500 // 5%
	h.createActive(t, params)
	h.fundTenant(t, 1000)

	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))

	record, err := h.service.GetPaymentRecord(ctx, "AGR_001", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(950), record.LandlordAmount)
	assert.Equal(t, int64(50), record.AgentAmount)
	assert.Equal(t, record.Amount, record.LandlordAmount+record.AgentAmount)

	assert.Equal(t, int64(0), h.balance(t, testTenant))
	assert.Equal(t, int64(950), h.balance(t, testLandlord))
	assert.Equal(t, int64(50), h.balance(t, testAgent))

	recorded := h.recorder.Events()
	require.NotEmpty(t, recorded)
	last := recorded[len(recorded)-1]
	assert.Equal(t, events.TopicRentPaid, last.Topic)
	paid, isRentPaid := last.Payload.(events.RentPaid)
	require.True(t, isRentPaid)
	assert.Equal(t, int64(1000), paid.Amount)
	assert.Equal(t, int64(950), paid.LandlordAmount)
	assert.Equal(t, int64(50), paid.AgentAmount)
	assert.NotZero(t, paid.Timestamp)
}

func TestPayRentZeroCommissionSkipsAgentTransfer(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	params := defaultParams("AGR_001")
	params.Agent = testAgent
	params.CommissionRate = 0
	h.createActive(t, params)
	h.fundTenant(t, 1000)

	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))

	assert.Equal(t, int64(1000), h.balance(t, testLandlord))
	assert.Equal(t, int64(0), h.balance(t, testAgent))
}

func TestPayRentRejectsInactiveAgreement(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	require.NoError(t, h.service.CreateAgreement(ctx, defaultParams("AGR_001")))
	h.fundTenant(t, 1000)

	err := h.service.PayRent(ctx, "AGR_001", testToken, 1000)
	assert.ErrorIs(t, err, ErrAgreementNotActive)

	agreement, _, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), agreement.TotalRentPaid)
	assert.Equal(t, uint32(0), agreement.PaymentCount)
	assert.Equal(t, int64(1000), h.balance(t, testTenant))
}

func TestPayRentRejectsWrongAmount(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	h.createActive(t, defaultParams("AGR_001"))
	h.fundTenant(t, 5000)

	for _, amount := range []int64{999, 1001, 0, -1000} {
		err := h.service.PayRent(ctx, "AGR_001", testToken, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", amount)
	}
	assert.Equal(t, int64(5000), h.balance(t, testTenant))
}

func TestPayRentUnknownAgreement(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()

	err := h.service.PayRent(callerCtx(), "AGR_404", testToken, 1000)
	assert.ErrorIs(t, err, ErrAgreementNotFound)
}

func TestPayRentRequiresTenantAuthorization(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()

	h.createActive(t, defaultParams("AGR_001"))
	h.fundTenant(t, 1000)

	landlordOnly := authz.WithCaller(context.Background(), testLandlord)
	err := h.service.PayRent(landlordOnly, "AGR_001", testToken, 1000)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
	assert.Equal(t, int64(1000), h.balance(t, testTenant))
}

func TestPayRentRollsBackOnFailedTransfer(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	params := defaultParams("AGR_001")
	params.Agent = testAgent
	params.CommissionRate = 500
	h.createActive(t, params)

	// Enough for the landlord share but not the agent share: the landlord
	// transfer succeeds inside the transaction, then the agent transfer
	// fails, and everything must unwind.
	h.fundTenant(t, 950)

	err := h.service.PayRent(ctx, "AGR_001", testToken, 1000)
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)

	agreement, _, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), agreement.TotalRentPaid)
	assert.Equal(t, uint32(0), agreement.PaymentCount)

	assert.Equal(t, int64(950), h.balance(t, testTenant))
	assert.Equal(t, int64(0), h.balance(t, testLandlord))
	assert.Equal(t, int64(0), h.balance(t, testAgent))

	_, err = h.service.GetPaymentRecord(ctx, "AGR_001", 1)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	count, err := h.service.GetPaymentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

func TestGetPayment(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	h.createActive(t, defaultParams("AGR_001"))
	h.fundTenant(t, 1000)
	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))

	record, err := h.service.GetPayment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "AGR_001", record.AgreementID)
	assert.Equal(t, int64(1000), record.Amount)

	_, err = h.service.GetPayment(ctx, 2)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

// seedPayment writes a record straight into the audit index, the way the
// settlement path does, so totals can be exercised with mixed amounts.
func (h *testHarness) seedPayment(t *testing.T, agreementID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	err := h.store.Update(ctx, func(tx store.Tx) error {
		count, err := readCounter(ctx, tx, paymentCountKey())
		if err != nil {
			return err
		}
		record := models.PaymentRecord{
			AgreementID:    agreementID,
			PaymentNumber:  count + 1,
			Amount:         amount,
			LandlordAmount: amount,
			Timestamp:      12345,
			Tenant:         testTenant,
		}
		if err := tx.Set(ctx, store.Persistent, paymentKey(count+1), &record); err != nil {
			return err
		}
		return tx.Set(ctx, store.Instance, paymentCountKey(), count+1)
	})
	require.NoError(t, err)
}

func TestGetTotalPaid(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	h.seedPayment(t, "AGR_001", 1000)
	h.seedPayment(t, "AGR_001", 1500)
	h.seedPayment(t, "AGR_002", 2000)
	h.seedPayment(t, "AGR_001", 500)

	total, err := h.service.GetTotalPaid(ctx, "AGR_001")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)

	total, err = h.service.GetTotalPaid(ctx, "AGR_002")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), total)

	total, err = h.service.GetTotalPaid(ctx, "AGR_404")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestGetTotalPaidMatchesAccumulator(t *testing.T) {
	h, cleanup := setupTestService(t)
	defer cleanup()
	ctx := callerCtx()

	h.createActive(t, defaultParams("AGR_001"))
	h.fundTenant(t, 3000)
	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))
	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))
	require.NoError(t, h.service.PayRent(ctx, "AGR_001", testToken, 1000))

	agreement, _, err := h.service.GetAgreement(ctx, "AGR_001")
	require.NoError(t, err)

	total, err := h.service.GetTotalPaid(ctx, "AGR_001")
	require.NoError(t, err)
	assert.Equal(t, agreement.TotalRentPaid, total)
}
