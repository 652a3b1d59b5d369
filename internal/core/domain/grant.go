package domain

// AccessType names the resource an access token is scoped to.
type AccessType string

const (
	AccessIncomingPayment AccessType = "incoming-payment"
	AccessQuote           AccessType = "quote"
	AccessOutgoingPayment AccessType = "outgoing-payment"
)

// Access actions.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionList     = "list"
	ActionComplete = "complete"
)

// AccessLimits bounds an outgoing-payment grant.
type AccessLimits struct {
	DebitAmount   *Amount `json:"debitAmount,omitempty"`
	ReceiveAmount *Amount `json:"receiveAmount,omitempty"`
}

// AccessRequest is one entry of a grant's access list.
type AccessRequest struct {
	Type       AccessType    `json:"type"`
	Actions    []string      `json:"actions"`
	Identifier string        `json:"identifier,omitempty"`
	Limits     *AccessLimits `json:"limits,omitempty"`
}

// GrantRequest describes what is being asked of an authorization server.
// Interactive requests end up pending until the wallet owner approves them.
type GrantRequest struct {
	Access      []AccessRequest
	Interactive bool
	FinishURI   string
	FinishNonce string
}

// Grant is the authorization server's answer. A finalized grant carries an
// access token; a pending one carries the interaction redirect and the
// continuation handle.
type Grant struct {
	AccessToken      string `json:"-"`
	ManageURI        string `json:"manageUri,omitempty"`
	ExpiresIn        int    `json:"expiresIn,omitempty"`
	ContinueURI      string `json:"continueUri,omitempty"`
	ContinueToken    string `json:"-"`
	ContinueWait     int    `json:"continueWait,omitempty"`
	InteractRedirect string `json:"interactRedirect,omitempty"`
	InteractFinish   string `json:"interactFinish,omitempty"`
}

// IsFinalized reports whether the access token is usable right away.
func (g *Grant) IsFinalized() bool {
	return g != nil && g.AccessToken != ""
}

// IsPending reports whether the grant awaits user interaction.
func (g *Grant) IsPending() bool {
	return g != nil && g.AccessToken == "" && g.ContinueURI != ""
}
