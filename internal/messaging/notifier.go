package messaging

import (
	"bytes"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/teleport"
	"github.com/pixil98/servercore/internal/world"
)

// Chat message templates for the request lifecycle. Each side of a request
// gets its own wording.
const (
	tmplInboundSent  = "Request to teleport you to {{ .RecipientName }} was sent. Use /tpcancel {{ .Id }} to cancel."
	tmplOutboundSent = "Request to teleport {{ .RecipientName }} to you was sent. Use /tpcancel {{ .Id }} to cancel."

	tmplInboundReceived  = "{{ .SenderName }} wants to teleport to you. Use /tpaccept {{ .Id }} or /tpdeny {{ .Id }}."
	tmplOutboundReceived = "{{ .SenderName }} wants you to teleport to them. Use /tpaccept {{ .Id }} or /tpdeny {{ .Id }}."

	tmplAcceptedSender    = "The teleport request sent to {{ .RecipientName }} got accepted."
	tmplAcceptedRecipient = "You accepted the request that {{ .SenderName }} sent."

	tmplDeniedSender    = "The teleport request sent to {{ .RecipientName }} got denied."
	tmplDeniedRecipient = "You denied the request that {{ .SenderName }} sent."

	tmplCancelledSender    = "Successfully cancelled the request sent to {{ .RecipientName }}."
	tmplCancelledRecipient = "{{ .SenderName }} has cancelled their teleport request."

	tmplTimedOutSender    = "The teleport request sent to {{ .RecipientName }} has timed out."
	tmplTimedOutRecipient = "The request that {{ .SenderName }} sent has timed out."
)

var notifierFuncs = sprig.TxtFuncMap()

// requestContext is the data every lifecycle template renders against.
type requestContext struct {
	Id            uuid.UUID
	SenderName    string
	RecipientName string
}

// ChatNotifier renders teleport lifecycle messages and delivers them to the
// parties' chat subjects. Delivery failures are logged, never propagated:
// chat is best-effort.
type ChatNotifier struct {
	pub   Publisher
	world *world.State
}

func NewChatNotifier(pub Publisher, w *world.State) *ChatNotifier {
	return &ChatNotifier{pub: pub, world: w}
}

func (n *ChatNotifier) RequestSent(r *teleport.Request) {
	if r.Direction() == teleport.Outbound {
		n.send(r.Sender(), tmplOutboundSent, n.context(r))
		return
	}
	n.send(r.Sender(), tmplInboundSent, n.context(r))
}

func (n *ChatNotifier) RequestReceived(r *teleport.Request) {
	actor, ok := r.Recipient().Actor()
	if !ok {
		return
	}
	if r.Direction() == teleport.Outbound {
		n.send(actor, tmplOutboundReceived, n.context(r))
		return
	}
	n.send(actor, tmplInboundReceived, n.context(r))
}

func (n *ChatNotifier) RequestAccepted(r *teleport.Request) {
	n.both(r, tmplAcceptedSender, tmplAcceptedRecipient)
}

func (n *ChatNotifier) RequestDenied(r *teleport.Request) {
	n.both(r, tmplDeniedSender, tmplDeniedRecipient)
}

func (n *ChatNotifier) RequestCancelled(r *teleport.Request) {
	n.both(r, tmplCancelledSender, tmplCancelledRecipient)
}

func (n *ChatNotifier) RequestTimedOut(r *teleport.Request) {
	n.both(r, tmplTimedOutSender, tmplTimedOutRecipient)
}

func (n *ChatNotifier) both(r *teleport.Request, senderTmpl, recipientTmpl string) {
	reqCtx := n.context(r)
	n.send(r.Sender(), senderTmpl, reqCtx)
	if actor, ok := r.Recipient().Actor(); ok {
		n.send(actor, recipientTmpl, reqCtx)
	}
}

func (n *ChatNotifier) context(r *teleport.Request) *requestContext {
	return &requestContext{
		Id:            r.Id(),
		SenderName:    n.name(r.Sender()),
		RecipientName: n.recipientName(r.Recipient()),
	}
}

func (n *ChatNotifier) name(id uuid.UUID) string {
	if a, ok := n.world.Get(id); ok {
		return a.Name
	}
	return id.String()
}

func (n *ChatNotifier) recipientName(rec teleport.Recipient) string {
	if id, ok := rec.Actor(); ok {
		return n.name(id)
	}
	return rec.String()
}

func (n *ChatNotifier) send(actor uuid.UUID, tmplStr string, data *requestContext) {
	if !n.world.Online(actor) {
		return
	}

	msg, err := renderTemplate(tmplStr, data)
	if err != nil {
		slog.Warn("failed to render chat message", "actor", actor, "error", err)
		return
	}
	if err := n.pub.Publish(ChatSubject(actor), []byte(msg)); err != nil {
		slog.Warn("failed to deliver chat message", "actor", actor, "error", err)
	}
}

// ChatSubject is the per-player chat delivery subject.
func ChatSubject(actor uuid.UUID) string {
	return fmt.Sprintf("chat.%s", actor)
}

func renderTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(notifierFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
