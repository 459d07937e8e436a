// Package id mints the identifiers that tie a trade decision to its fill:
// client order ids sent to the broker and idempotency keys for fills.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ClientOrderPrefix tags orders sent by the gate.
const ClientOrderPrefix = "rg"

var (
	entropyMu sync.Mutex
	entropy   io.Reader
)

func init() {
	// Two gate processes must not mint the same client order id, so the
	// entropy source is seeded from crypto/rand. Monotonic entropy keeps ids
	// minted in one millisecond in issue order.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New mints a ULID. The journal's idempotency index sorts these by the time
// they were issued.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	u, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		// Entropy overflow within one millisecond.
		panic(err)
	}
	return u.String()
}

// WithPrefix mints a tag such as "sim-01HV...". The result stays within the
// characters TopstepX accepts in customTag and Alpaca in client_order_id.
func WithPrefix(p string) string {
	if p == "" {
		return New()
	}
	return p + "-" + New()
}

// ClientOrderID mints the id for one order intent. Retries of that intent
// reuse it so the broker can refuse the duplicate.
func ClientOrderID() string { return WithPrefix(ClientOrderPrefix) }

// FillKey is the idempotency key of the fill for a broker order. It depends
// only on the venue and the broker's order id, so a fill recovered on retry
// deduplicates against the first report.
func FillKey(venue, orderID string) string {
	return venue + "-order-" + orderID
}
