package io

import (
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/chemtalk/pkg/Logger"
	"github.com/xpanvictor/chemtalk/pkg/io/registry"
)

type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message,omitempty"`
	At      time.Time        `json:"at"`
}

// Publisher pushes user-visible notifications to every live text endpoint of
// a user. Delivery happens off the caller's goroutine.
type Publisher struct {
	reg    registry.Registry
	logger *Logger.Logger
}

func New(reg registry.Registry, logger *Logger.Logger) *Publisher {
	return &Publisher{reg: reg, logger: Logger.OrNop(logger).Named("notify")}
}

// ForUser binds the publisher to one user.
func (p *Publisher) ForUser(userID uuid.UUID) UserNotifier {
	return UserNotifier{p: p, userID: userID}
}

func (p *Publisher) Notify(userID uuid.UUID, kind NotificationKind, title, message string) {
	n := Notification{Kind: kind, Title: title, Message: message, At: time.Now()}
	switch kind {
	case KindError:
		p.logger.Warnw(title, "user", userID, "message", message)
	default:
		p.logger.Infow(title, "user", userID, "kind", kind, "message", message)
	}
	go p.deliver(userID, n)
}

func (p *Publisher) deliver(userID uuid.UUID, n Notification) {
	eps, ok := p.reg.FetchTextFanoutEndpoints(userID)
	if !ok {
		return
	}
	for _, ep := range eps {
		if err := ep.SendEvent("notification", n); err != nil {
			p.logger.Debugf("endpoint %s missed notification: %v", ep.ID(), err)
		}
	}
}

// UserNotifier is a Publisher scoped to one user.
type UserNotifier struct {
	p      *Publisher
	userID uuid.UUID
}

func (u UserNotifier) Notify(kind NotificationKind, title, message string) {
	u.p.Notify(u.userID, kind, title, message)
}
