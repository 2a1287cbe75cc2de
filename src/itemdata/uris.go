package itemdata

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"net/url"
	"strings"

	"git.thicket.social/thicket/thicket/src/db"
	"git.thicket.social/thicket/thicket/src/models"
	"git.thicket.social/thicket/thicket/src/oops"
	"github.com/google/uuid"
	"golang.org/x/crypto/ripemd160"
)

// EnsureURIID interns a uri, returning its stable integer handle. Guid is
// recorded alongside the uri on first sight and never overwritten. Two
// concurrent ingests of a new uri race on the insert; the loser re-queries
// and reuses the winner's handle.
func EnsureURIID(ctx context.Context, conn db.ConnOrTx, uri string, guid string) (int, error) {
	id, err := db.QueryOneScalar[int](ctx, conn,
		`
		---- look up interned uri
		SELECT id FROM item_uri WHERE uri = $1
		`,
		uri,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to look up uri %s", uri)
	}

	var guidVal *string
	if guid != "" {
		guidVal = &guid
	}
	id, err = db.QueryOneScalar[int](ctx, conn,
		`
		---- intern uri
		INSERT INTO item_uri (uri, guid)
		VALUES ($1, $2)
		ON CONFLICT (uri) DO NOTHING
		RETURNING id
		`,
		uri, guidVal,
	)
	if err == nil {
		return id, nil
	} else if !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to intern uri %s", uri)
	}

	// Somebody else inserted it between our two statements.
	id, err = db.QueryOneScalar[int](ctx, conn,
		`SELECT id FROM item_uri WHERE uri = $1`,
		uri,
	)
	if err != nil {
		return 0, oops.New(err, "failed to re-fetch uri %s after insert race", uri)
	}
	return id, nil
}

// GuidFromURI derives a deterministic guid for a remote object that arrived
// without one. The origin host contributes a crc32 prefix; the scheme-stripped
// uri contributes a ripemd160 digest. Repeated deliveries of the same object
// through different relays converge on the same guid.
func GuidFromURI(uri string, host string) string {
	hostHash := crc32.ChecksumIEEE([]byte(host))

	stripped := uri
	if idx := strings.Index(stripped, "://"); idx >= 0 {
		stripped = stripped[idx+3:]
	}
	pathHash := ripemd160.New()
	pathHash.Write([]byte(stripped))

	return fmt.Sprintf("%08x", hostHash) + "-" + hex.EncodeToString(pathHash.Sum(nil))
}

// DeriveGuid fills in a guid for a record that lacks one. The permalink is
// preferred over the uri as hash input since it survives cross-network
// relaying better. A random guid is a last resort for records with neither.
func DeriveGuid(rec *models.ItemRecord) string {
	host := firstHost(rec.AuthorLink, rec.Plink, rec.URI, rec.OwnerLink)
	if rec.Plink != "" {
		return GuidFromURI(rec.Plink, host)
	}
	if rec.URI != "" {
		return GuidFromURI(rec.URI, host)
	}
	return uuid.New().String()
}

// NewURI synthesizes a uri for a locally originated item that has none.
func NewURI(hostname string, uid int, guid string) string {
	return fmt.Sprintf("urn:x-thicket:%s:%d:%s", hostname, uid, guid)
}

func firstHost(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if u, err := url.Parse(c); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return ""
}
