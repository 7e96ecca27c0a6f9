// Package ddbsdk implements kv.Store on top of the AWS SDK v2 DynamoDB client.
package ddbsdk

import (
	"github.com/acksell/foosball/kv"
	"github.com/rs/zerolog"
)

type Client struct {
	awsddb AWSDynamoClientV2
	log    zerolog.Logger
	// eventual switches point lookups and queries to eventually consistent reads.
	eventual bool
}

var _ kv.Store = &Client{}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithEventualConsistency trades read-after-write guarantees for cheaper reads.
func WithEventualConsistency() Option {
	return func(c *Client) {
		c.eventual = true
	}
}

func New(awsddb AWSDynamoClientV2, opts ...Option) *Client {
	c := &Client{awsddb: awsddb, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
