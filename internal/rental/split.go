package rental

// splitPayment divides a gross rent amount between landlord and agent.
// The agent share is floor(gross*rate/10000), the landlord keeps the
// remainder, so landlord + agent == gross for every non-negative gross
// and every rate in [0, 10000]. The two shares feed two independent
// transfers that must reconcile to the gross amount exactly.
//
// The share is computed in two terms so the intermediate product never
// exceeds int64, whatever the gross amount: with gross = 10000*q + m,
// floor(gross*rate/10000) == q*rate + floor(m*rate/10000) exactly.
func splitPayment(gross int64, commissionRate uint32) (landlord, agent int64) {
	rate := int64(commissionRate)
	agent = gross/10_000*rate + gross%10_000*rate/10_000
	landlord = gross - agent
	return landlord, agent
}
