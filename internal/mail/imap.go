// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mail drains the judicial-reply mailbox. A Source opens one
// retrieval session per capture run; each message is retrieved on its own
// so a single failure does not end the session.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/gofjud/esteira/internal/models"
)

const defaultTimeout = 30 * time.Second

// Source opens retrieval sessions.
type Source interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one pass over the mailbox. Positions are 1-based.
type Session interface {
	Count() int
	Retrieve(ctx context.Context, position int) (*models.RawMessage, error)
	Close() error
}

// IMAPConfig holds the mailbox connection settings.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	TLS      bool
	Timeout  time.Duration
}

// IMAPSource reads messages from an IMAP mailbox without marking them seen.
type IMAPSource struct {
	cfg IMAPConfig
}

// NewIMAPSource creates an IMAP source.
func NewIMAPSource(cfg IMAPConfig) *IMAPSource {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	return &IMAPSource{cfg: cfg}
}

// Open connects, logs in and selects the mailbox read-only.
func (s *IMAPSource) Open(ctx context.Context) (Session, error) {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	var (
		c   *client.Client
		err error
	)
	if s.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: s.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.Timeout = s.cfg.Timeout

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("login: %w", err)
	}

	mbox, err := c.Select(s.cfg.Mailbox, true)
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("select %s: %w", s.cfg.Mailbox, err)
	}

	slog.Info("mailbox opened",
		"host", s.cfg.Host,
		"mailbox", s.cfg.Mailbox,
		"messages", mbox.Messages,
	)
	return &imapSession{c: c, count: int(mbox.Messages)}, nil
}

type imapSession struct {
	c     *client.Client
	count int
}

func (s *imapSession) Count() int { return s.count }

func (s *imapSession) Retrieve(ctx context.Context, position int) (*models.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(position))
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	if err := s.c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages); err != nil {
		return nil, fmt.Errorf("fetch message %d: %w", position, err)
	}

	msg := <-messages
	if msg == nil {
		return nil, fmt.Errorf("message %d not returned by server", position)
	}
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body", position)
	}

	return Parse(body, position, time.Now().UTC())
}

func (s *imapSession) Close() error {
	return s.c.Logout()
}
