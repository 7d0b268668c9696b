package hub

import (
	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/presence"
	"github.com/danmuck/relayctl/internal/proposal"
	"github.com/danmuck/relayctl/internal/protocol"
)

// session is the per-connection state machine: unbound until a registration
// succeeds, then bound to that address (rebinding is allowed).
type session struct {
	conn *wsConn
	addr string // empty while unbound
}

type handlerFunc func(sess *session, msg any)

// dispatchTable maps message discriminators to handlers. Both naming families
// land on the same handler.
func (s *Service) dispatchTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.TypeRegister:          s.handleRegister,
		protocol.TypeRegisterPresence:  s.handleRegister,
		protocol.TypeLookupAddress:     s.handleLookup,
		protocol.TypeSendProposal:      s.handleSendProposal,
		protocol.TypeKnockRequest:      s.handleSendProposal,
		protocol.TypeRespondToProposal: s.handleRespond,
		protocol.TypeKnockResponse:     s.handleRespond,
	}
}

// dispatch decodes and routes one inbound message. Malformed or unknown
// input is dropped without a reply.
func (s *Service) dispatch(sess *session, raw []byte) {
	typ, msg, err := protocol.DecodeInbound(raw)
	if err != nil {
		s.log.Debug().Str("conn_id", sess.conn.ID()).Str("type", typ).Err(err).Msg("dropping message")
		return
	}
	handler, ok := s.handlers[typ]
	if !ok {
		return
	}
	handler(sess, msg)
}

func (s *Service) handleRegister(sess *session, msg any) {
	reg := msg.(protocol.Register)

	_, existed := s.registry.Lookup(reg.Addr())
	entry, ok := s.registry.Register(reg.Addr(), reg.Name, sess.conn)
	if !ok {
		observability.RecordRegistration("rejected")
		return
	}
	sess.addr = entry.Address
	if existed {
		observability.RecordRegistration("replaced")
	} else {
		observability.RecordRegistration("accepted")
	}
	observability.SetRegistryEntries(s.registry.Len())

	var expiresIn int64
	if entry.Expires() {
		expiresIn = int64(s.registry.TTL().Seconds())
	}
	if err := sess.conn.Send(protocol.NewRegistered(entry.Address, expiresIn)); err != nil {
		s.log.Debug().Str("address", entry.Address).Err(err).Msg("registration ack send failed")
	}
	s.log.Info().Str("address", entry.Address).Str("name", entry.Name).Msg("registered")
}

func (s *Service) handleLookup(sess *session, msg any) {
	lookup := msg.(protocol.Lookup)

	entry, ok := s.registry.Lookup(lookup.Query)
	if !ok {
		observability.RecordLookup("miss")
		_ = sess.conn.Send(protocol.NewLookupMiss())
		return
	}
	observability.RecordLookup("hit")
	_ = sess.conn.Send(protocol.NewLookupHit(entry.Name, entry.Address))
}

func (s *Service) handleSendProposal(sess *session, msg any) {
	req := msg.(protocol.SendProposal)

	target, ok := s.registry.Lookup(req.Target())
	if !ok {
		// Silent no-op: the sender learns nothing about absent addresses.
		observability.RecordRelay("miss")
		return
	}

	fromAddr := presence.Normalize(req.FromAddress)
	if fromAddr == "" {
		fromAddr = sess.addr
	}

	id, _ := s.tracker.Create(fromAddr, sess.conn, target.Address, target.Conn, proposal.Payload{
		FromName:     req.FromName,
		ProposedTime: req.ProposedTime,
	})
	observability.RecordProposalEvent("created")
	s.log.Info().Str("prop_id", id).Str("from", fromAddr).Str("to", target.Address).Msg("proposal created")

	s.engine.Relay(target.Address, protocol.NewIncomingProposal(id, fromAddr, req.FromName, req.ProposedTime))
}

func (s *Service) handleRespond(sess *session, msg any) {
	resp := msg.(protocol.RespondToProposal)

	delivery, ok := s.tracker.Respond(resp.PropID, proposal.Action(resp.Action), resp.CounterTime)
	if !ok {
		// Stale: expired, already answered, or never existed.
		observability.RecordProposalEvent("stale_response")
		return
	}
	observability.RecordProposalEvent("responded")

	out := protocol.NewProposalResponse(delivery.ID, string(delivery.Action), delivery.NewTime)
	if err := delivery.Target.Send(out); err != nil {
		observability.RecordRelay("send_failed")
		s.log.Debug().Str("prop_id", delivery.ID).Err(err).Msg("response relay failed")
		return
	}
	observability.RecordRelay("delivered")
}
