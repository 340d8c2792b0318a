package rental

import "rent-ledger-go/internal/store"

// Storage addressing for the agreement/payment core. Agreements and
// payment records are long-lived entities (persistent class); the global
// counters are contract bookkeeping (instance class). Payment records are
// written under two keys: the per-agreement sequence for direct lookup,
// and the global sequence forming the audit index that GetTotalPaid scans.
const (
	kindAgreement      = "agreement"
	kindAgreementCount = "agreement_count"
	kindPayment        = "payment"
	kindPaymentRecord  = "payment_record"
	kindPaymentCount   = "payment_count"
)

func agreementKey(id string) store.Key { return store.NewIDKey(kindAgreement, id) }

func agreementCountKey() store.Key { return store.NewKey(kindAgreementCount) }

// paymentKey addresses the global audit index, 1-based.
func paymentKey(seq uint32) store.Key { return store.NewSeqKey(kindPayment, seq) }

// paymentRecordKey addresses the nth payment of one agreement, 1-based.
func paymentRecordKey(agreementID string, n uint32) store.Key {
	return store.NewIDSeqKey(kindPaymentRecord, agreementID, n)
}

func paymentCountKey() store.Key { return store.NewKey(kindPaymentCount) }
