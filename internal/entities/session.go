package entities

// Session is the authenticated caller of a gateway endpoint, extracted from
// the panel's JWT claims.
type Session struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Support   bool   `json:"support"`
	Admin     bool   `json:"admin"`
}
