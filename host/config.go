package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/shaorongqiang/bitcoin-block-verify/bonsai"
)

// Config selects where proofs run and how.
//
// A nil Remote runs guests on the in-process executor; otherwise every
// proof request goes to the remote service. ProveLocally only affects the
// local path: it turns plain execution into sealed, verifiable receipts.
type Config struct {
	Remote       *bonsai.Endpoint
	ProveLocally bool
	PollInterval time.Duration
}

// Validate reports the first problem with the config.
func (c Config) Validate() error {
	if c.Remote != nil && (c.Remote.URL == "" || c.Remote.Key == "") {
		return errors.New("host: remote endpoint needs both URL and API key")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("host: negative poll interval %v", c.PollInterval)
	}
	return nil
}
