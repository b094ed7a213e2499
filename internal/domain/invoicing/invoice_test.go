package invoicing

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoice(t *testing.T) {
	doc := validDocument()
	userID, receptionID := uuid.New(), uuid.New()

	t.Run("starts pending", func(t *testing.T) {
		inv, err := NewInvoice(doc, userID, receptionID, "xml-key", "pdf-key")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, inv.ID)
		assert.Equal(t, SyncStatusPending, inv.SyncStatus)
		assert.Nil(t, inv.SyncError)
		assert.Equal(t, doc.FiscalFolio, inv.Folio)
		assert.True(t, inv.Total.Equal(doc.Total))
	})

	t.Run("requires folio", func(t *testing.T) {
		d := *doc
		d.FiscalFolio = ""
		_, err := NewInvoice(&d, userID, receptionID, "x", "p")
		assert.ErrorIs(t, err, ErrMissingFiscalFolio)
	})

	t.Run("requires owners", func(t *testing.T) {
		_, err := NewInvoice(doc, uuid.Nil, receptionID, "x", "p")
		assert.ErrorIs(t, err, ErrMissingRequiredField)
		_, err = NewInvoice(doc, userID, uuid.Nil, "x", "p")
		assert.ErrorIs(t, err, ErrMissingRequiredField)
	})
}

func TestInvoiceSyncTransitions(t *testing.T) {
	newInvoice := func() *Invoice {
		inv, err := NewInvoice(validDocument(), uuid.New(), uuid.New(), "x", "p")
		require.NoError(t, err)
		return inv
	}

	t.Run("failed carries truncated reason", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkFailed(strings.Repeat("é", 400)))
		assert.Equal(t, SyncStatusFailed, inv.SyncStatus)
		require.NotNil(t, inv.SyncError)
		assert.Len(t, []rune(*inv.SyncError), MaxSyncErrorLength)
	})

	t.Run("synced clears error and is idempotent", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkFailed("boom"))
		inv.MarkSynced()
		inv.MarkSynced()
		assert.Equal(t, SyncStatusSynced, inv.SyncStatus)
		assert.Nil(t, inv.SyncError)
	})

	t.Run("synced is never downgraded", func(t *testing.T) {
		inv := newInvoice()
		inv.MarkSynced()
		assert.ErrorIs(t, inv.MarkFailed("late failure"), ErrInvalidTransition)
		assert.ErrorIs(t, inv.ResetPending(), ErrInvalidTransition)
		assert.Equal(t, SyncStatusSynced, inv.SyncStatus)
	})

	t.Run("failed can be re-armed", func(t *testing.T) {
		inv := newInvoice()
		require.NoError(t, inv.MarkFailed("erp down"))
		require.NoError(t, inv.ResetPending())
		assert.Equal(t, SyncStatusPending, inv.SyncStatus)
		assert.Nil(t, inv.SyncError)
	})
}

func TestSyncStatus(t *testing.T) {
	assert.True(t, SyncStatusSynced.IsTerminal())
	assert.True(t, SyncStatusFailed.IsTerminal())
	assert.False(t, SyncStatusPending.IsTerminal())
	assert.False(t, SyncStatus("DONE").IsValid())
}

func TestTruncateSyncError(t *testing.T) {
	assert.Equal(t, "short", TruncateSyncError("short"))
	assert.Len(t, TruncateSyncError(strings.Repeat("a", 300)), 255)
}
