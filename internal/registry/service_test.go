package registry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"rent-ledger-go/internal/authz"
	"rent-ledger-go/internal/database"
	"rent-ledger-go/internal/events"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin    = "admin-1"
	testLandlord = "landlord-1"
)

func setupTestRegistry(t *testing.T) (*Service, *events.Recorder, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	st, err := database.NewServiceFromDB(db)
	require.NoError(t, err)

	recorder := &events.Recorder{}
	service := NewService(st, authz.ContextVerifier{}, recorder, 30*24*time.Hour)
	return service, recorder, func() { db.Close() }
}

func callerCtx(principals ...string) context.Context {
	return authz.WithCaller(context.Background(), principals...)
}

func TestInitialize(t *testing.T) {
	service, recorder, cleanup := setupTestRegistry(t)
	defer cleanup()
	ctx := callerCtx(testAdmin)

	require.NoError(t, service.Initialize(ctx, testAdmin))

	state, ok, err := service.GetState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testAdmin, state.Admin)
	assert.True(t, state.Initialized)

	// Second initialization is rejected.
	err = service.Initialize(ctx, testAdmin)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	recorded := recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.TopicRegistryInitialized, recorded[0].Topic)
}

func TestInitializeRequiresAdminAuthorization(t *testing.T) {
	service, _, cleanup := setupTestRegistry(t)
	defer cleanup()

	err := service.Initialize(callerCtx(testLandlord), testAdmin)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	_, ok, err := service.GetState(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterProperty(t *testing.T) {
	service, recorder, cleanup := setupTestRegistry(t)
	defer cleanup()
	require.NoError(t, service.Initialize(callerCtx(testAdmin), testAdmin))
	ctx := callerCtx(testLandlord)

	require.NoError(t, service.RegisterProperty(ctx, testLandlord, "PROP_001", "QmMetadataHash"))

	property, ok, err := service.GetProperty(ctx, "PROP_001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testLandlord, property.Landlord)
	assert.Equal(t, "QmMetadataHash", property.MetadataHash)
	assert.False(t, property.Verified)
	assert.NotZero(t, property.RegisteredAt)

	has, err := service.HasProperty(ctx, "PROP_001")
	require.NoError(t, err)
	assert.True(t, has)

	count, err := service.GetPropertyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	recorded := recorder.Events()
	assert.Equal(t, events.TopicPropertyRegistered, recorded[len(recorded)-1].Topic)
}

func TestRegisterPropertyRejections(t *testing.T) {
	service, _, cleanup := setupTestRegistry(t)
	defer cleanup()
	ctx := callerCtx(testAdmin, testLandlord)

	// Before initialization.
	err := service.RegisterProperty(ctx, testLandlord, "PROP_001", "hash")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, service.Initialize(ctx, testAdmin))

	assert.ErrorIs(t, service.RegisterProperty(ctx, testLandlord, "", "hash"), ErrInvalidPropertyID)
	assert.ErrorIs(t, service.RegisterProperty(ctx, testLandlord, "PROP_001", ""), ErrInvalidMetadata)

	require.NoError(t, service.RegisterProperty(ctx, testLandlord, "PROP_001", "hash"))
	assert.ErrorIs(t, service.RegisterProperty(ctx, testLandlord, "PROP_001", "hash"), ErrPropertyExists)

	// Unauthorized landlord leaves no trace.
	err = service.RegisterProperty(callerCtx("someone-else"), testLandlord, "PROP_002", "hash")
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
	has, err := service.HasProperty(ctx, "PROP_002")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVerifyProperty(t *testing.T) {
	service, recorder, cleanup := setupTestRegistry(t)
	defer cleanup()
	ctx := callerCtx(testAdmin, testLandlord)

	require.NoError(t, service.Initialize(ctx, testAdmin))
	require.NoError(t, service.RegisterProperty(ctx, testLandlord, "PROP_001", "hash"))

	t.Run("only the admin may verify", func(t *testing.T) {
		err := service.VerifyProperty(callerCtx(testLandlord), testLandlord, "PROP_001")
		assert.ErrorIs(t, err, authz.ErrUnauthorized)
	})

	t.Run("unknown property", func(t *testing.T) {
		err := service.VerifyProperty(ctx, testAdmin, "PROP_404")
		assert.ErrorIs(t, err, ErrPropertyNotFound)
	})

	t.Run("verifies once", func(t *testing.T) {
		require.NoError(t, service.VerifyProperty(ctx, testAdmin, "PROP_001"))

		property, _, err := service.GetProperty(ctx, "PROP_001")
		require.NoError(t, err)
		assert.True(t, property.Verified)

		err = service.VerifyProperty(ctx, testAdmin, "PROP_001")
		assert.ErrorIs(t, err, ErrAlreadyVerified)

		recorded := recorder.Events()
		assert.Equal(t, events.TopicPropertyVerified, recorded[len(recorded)-1].Topic)
	})
}
