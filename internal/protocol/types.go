package protocol

// Client -> server message types. The presence-plane and knock-plane clients
// use different names for the same operations; both are accepted.
const (
	TypeRegister          = "register"
	TypeRegisterPresence  = "register_presence"
	TypeLookupAddress     = "lookup_address"
	TypeSendProposal      = "send_proposal"
	TypeKnockRequest      = "knock_request"
	TypeRespondToProposal = "respond_to_proposal"
	TypeKnockResponse     = "knock_response"
)

// Server -> client message types.
const (
	TypeRegistered       = "registered"
	TypeLookupResult     = "lookup_result"
	TypeIncomingProposal = "incoming_proposal"
	TypeProposalResponse = "proposal_response"
)

// Register binds the sending connection to an address. The knock-plane
// clients carry the address in a "knock" field.
type Register struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	Knock   string `json:"knock"`
	Name    string `json:"name"`
}

// Addr returns whichever address field the client populated.
func (m Register) Addr() string {
	if m.Address != "" {
		return m.Address
	}
	return m.Knock
}

// Lookup asks whether an address is currently registered.
type Lookup struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// SendProposal creates a pending proposal toward another address. Knock-plane
// clients use a bare "to" field.
type SendProposal struct {
	Type         string `json:"type"`
	ToAddress    string `json:"toAddress"`
	To           string `json:"to"`
	FromAddress  string `json:"fromAddress"`
	FromName     string `json:"fromName"`
	ProposedTime string `json:"proposedTime"`
}

// Target returns whichever target field the client populated.
func (m SendProposal) Target() string {
	if m.ToAddress != "" {
		return m.ToAddress
	}
	return m.To
}

// RespondToProposal answers a pending proposal.
type RespondToProposal struct {
	Type        string `json:"type"`
	PropID      string `json:"propId"`
	Action      string `json:"action"`
	CounterTime string `json:"counterTime"`
}

// Registered acknowledges a successful registration. ExpiresIn is seconds
// until eviction, zero when the registry runs without TTL.
type Registered struct {
	Type      string `json:"type"`
	Address   string `json:"address"`
	ExpiresIn int64  `json:"expiresIn"`
}

// LookupResult answers a Lookup. Name and Address are present only on a hit.
type LookupResult struct {
	Type    string `json:"type"`
	Found   bool   `json:"found"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// IncomingProposal is delivered to the target of a SendProposal.
type IncomingProposal struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	FromAddress  string `json:"fromAddress"`
	FromName     string `json:"fromName"`
	ProposedTime string `json:"proposedTime"`
}

// ProposalResponse is delivered to the proposal's original sender.
type ProposalResponse struct {
	Type    string `json:"type"`
	PropID  string `json:"propId"`
	Action  string `json:"action"`
	NewTime string `json:"newTime"`
}

// NewRegistered builds a registration ack.
func NewRegistered(address string, expiresIn int64) Registered {
	return Registered{Type: TypeRegistered, Address: address, ExpiresIn: expiresIn}
}

// NewLookupMiss builds a not-found lookup reply.
func NewLookupMiss() LookupResult {
	return LookupResult{Type: TypeLookupResult, Found: false}
}

// NewLookupHit builds a found lookup reply.
func NewLookupHit(name, address string) LookupResult {
	return LookupResult{Type: TypeLookupResult, Found: true, Name: name, Address: address}
}

// NewIncomingProposal builds the message relayed to a proposal target.
func NewIncomingProposal(id, fromAddress, fromName, proposedTime string) IncomingProposal {
	return IncomingProposal{
		Type:         TypeIncomingProposal,
		ID:           id,
		FromAddress:  fromAddress,
		FromName:     fromName,
		ProposedTime: proposedTime,
	}
}

// NewProposalResponse builds the message relayed back to a proposal sender.
func NewProposalResponse(propID, action, newTime string) ProposalResponse {
	return ProposalResponse{
		Type:    TypeProposalResponse,
		PropID:  propID,
		Action:  action,
		NewTime: newTime,
	}
}
