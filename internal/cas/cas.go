// Package cas publishes artifacts to content-addressed storage. The live
// backends are an IPFS node API and an S3 bucket keyed by content digest;
// a local simulator covers requests without a signing capability.
package cas

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"

	"dca-automation/internal/models"
)

// Store uploads a named payload and returns its content address.
type Store interface {
	Put(ctx context.Context, name string, payload []byte) (models.ContentRef, error)
}

// Simulator synthesizes content refs without any network I/O. Refs are
// deterministic per (name, payload) so repeated simulated runs of the same
// plan agree, but they are not resolvable anywhere.
type Simulator struct{}

var simEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func (Simulator) Put(_ context.Context, name string, payload []byte) (models.ContentRef, error) {
	sum := sha256.Sum256(payload)
	digest := strings.ToLower(simEncoding.EncodeToString(sum[:20]))
	cid := fmt.Sprintf("sim-%s-%s", sanitizeName(name), digest)
	return models.ContentRef{
		CID: cid,
		URL: "simulated://ipfs/" + cid,
	}, nil
}

func sanitizeName(name string) string {
	name = strings.TrimSuffix(name, ".js")
	name = strings.TrimSuffix(name, ".json")
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".js"):
		return "application/javascript"
	default:
		return "text/plain; charset=utf-8"
	}
}
