package domain

// Reputation ledger: derives counter and score deltas from lifecycle events
// and applies them to a User. Reputation only ever increases; there is no
// deduction or decay on any corrective action.

const (
	// initialReputation is granted to every user on first authentication.
	initialReputation = 100

	submissionReward = 10
	resolutionReward = 25
)

// NewUser initializes a first-time user: starting reputation, zeroed
// counters, empty notification list, joined now.
func NewUser(name, email string, role Role) User {
	return User{
		Name:          name,
		Email:         email,
		Role:          role,
		Reputation:    initialReputation,
		Notifications: []string{},
		JoinedAt:      clock.Now(),
	}
}

// CreditSubmission applies the submission reward to the reporting user.
func CreditSubmission(u *User) {
	u.ReportsSubmitted++
	u.Reputation += submissionReward
}

// CreditResolution applies the resolution reward to the authority who
// resolved the report.
func CreditResolution(u *User) {
	u.ReportsResolved++
	u.Reputation += resolutionReward
}
