package events

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"rent-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Numscript templates mirroring a settled rent payment as double-entry
// postings. All metadata is set inside the script so the Formance
// transaction is fully self-describing.

const numscriptRentPaid = `vars {
  asset $asset
  number $landlord_amount
  account $tenant
  account $landlord
  string $agreement_id
  string $payment_number
}

send [$asset $landlord_amount] (
  source = @tenants:$tenant allowing unbounded overdraft
  destination = @landlords:$landlord
)

set_tx_meta("event_type", "rent_paid")
set_tx_meta("agreement_id", $agreement_id)
set_tx_meta("payment_number", $payment_number)
`

const numscriptRentPaidWithAgent = `vars {
  asset $asset
  number $landlord_amount
  number $agent_amount
  account $tenant
  account $landlord
  account $agent
  string $agreement_id
  string $payment_number
}

send [$asset $landlord_amount] (
  source = @tenants:$tenant allowing unbounded overdraft
  destination = @landlords:$landlord
)

send [$asset $agent_amount] (
  source = @tenants:$tenant allowing unbounded overdraft
  destination = @agents:$agent
)

set_tx_meta("event_type", "rent_paid")
set_tx_meta("agreement_id", $agreement_id)
set_tx_meta("payment_number", $payment_number)
`

// FormanceMirror replays settled payments into a Formance Stack ledger as
// an off-ledger audit trail. It is a sink: failures are logged, never
// surfaced, and the reference makes replays idempotent.
type FormanceMirror struct {
	client *v3.Formance
	ledger string
}

var _ Publisher = (*FormanceMirror)(nil)

// NewFormanceMirror connects to the stack and creates the ledger if it
// does not already exist.
func NewFormanceMirror(ctx context.Context, cfg models.MirrorConfig) (*FormanceMirror, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("mirror config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "rent-settlements"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithClient(httpClient),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	mirror := &FormanceMirror{client: client, ledger: cfg.LedgerName}
	if err := mirror.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance mirror initialized", zap.String("ledger", cfg.LedgerName))
	return mirror, nil
}

func createCustomHttpClient() (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (m *FormanceMirror) ensureLedger(ctx context.Context) error {
	_, err := m.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: m.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "rent-ledger-go",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", m.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", m.ledger))
	return nil
}

// Publish mirrors rent_paid events; everything else is ignored.
func (m *FormanceMirror) Publish(topic string, payload any) {
	if topic != TopicRentPaid {
		return
	}
	paid, ok := payload.(RentPaid)
	if !ok {
		zap.L().Warn("Unexpected rent_paid payload type", zap.Any("payload", payload))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.recordSettlement(ctx, paid); err != nil {
		// Sink contract: the settlement already committed, so the miss is
		// logged and the operation outcome is unaffected.
		zap.L().Error("Failed to mirror settlement",
			zap.String("agreement_id", paid.AgreementID),
			zap.Uint32("payment_number", paid.PaymentNumber),
			zap.Error(err))
	}
}

func (m *FormanceMirror) recordSettlement(ctx context.Context, paid RentPaid) error {
	script := numscriptRentPaid
	vars := map[string]string{
		"asset":           paid.Token + "/0",
		"landlord_amount": strconv.FormatInt(paid.LandlordAmount, 10),
		"tenant":          paid.Tenant,
		"landlord":        paid.Landlord,
		"agreement_id":    paid.AgreementID,
		"payment_number":  strconv.FormatUint(uint64(paid.PaymentNumber), 10),
	}
	if paid.Agent != "" && paid.AgentAmount > 0 {
		script = numscriptRentPaidWithAgent
		vars["agent"] = paid.Agent
		vars["agent_amount"] = strconv.FormatInt(paid.AgentAmount, 10)
	}

	reference := fmt.Sprintf("rent-%s-%d", paid.AgreementID, paid.PaymentNumber)
	settledAt := time.Unix(paid.Timestamp, 0).UTC()

	_, err := m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: m.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: &reference,
			Timestamp: &settledAt,
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			return nil // already mirrored
		}
		return err
	}

	zap.L().Info("Settlement mirrored",
		zap.String("agreement_id", paid.AgreementID),
		zap.Uint32("payment_number", paid.PaymentNumber),
		zap.Int64("amount", paid.Amount))
	return nil
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}
