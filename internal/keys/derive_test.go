package keys

import (
	"testing"

	"filippo.io/edwards25519"

	"listing-protocol/internal/domain"
)

func TestDerive_Deterministic(t *testing.T) {
	a := Derive([]byte("seed"), []byte{1, 2, 3})
	b := Derive([]byte("seed"), []byte{1, 2, 3})
	if a != b {
		t.Errorf("same seeds derived %s and %s", a, b)
	}
	if a.IsZero() {
		t.Errorf("derived the zero address")
	}
}

func TestDerive_OffCurve(t *testing.T) {
	addrs := []domain.Address{
		Config(),
		Treasury(),
		Proposal(domain.TrackToken, domain.Address{1}, 42),
		Registry(domain.TrackPerp, 7),
		Pool(domain.Address{2}),
	}
	for _, a := range addrs {
		if _, err := new(edwards25519.Point).SetBytes(a[:]); err == nil {
			t.Errorf("%s decodes as a curve point", a)
		}
	}
}

func TestDerive_NonceWidth(t *testing.T) {
	p1 := Proposal(domain.TrackToken, domain.Address{1}, 0x0102030405060708)
	p2 := Proposal(domain.TrackToken, domain.Address{1}, 0x0102030405060709)
	if p1 == p2 {
		t.Errorf("distinct nonces collided")
	}
}

func TestDerive_Distinct(t *testing.T) {
	seen := map[domain.Address]string{}
	add := func(name string, a domain.Address) {
		if prev, ok := seen[a]; ok {
			t.Errorf("%s collides with %s", name, prev)
		}
		seen[a] = name
	}

	add("config", Config())
	add("treasury", Treasury())
	for _, track := range []domain.Track{domain.TrackToken, domain.TrackSpot, domain.TrackPerp} {
		add("proposal/"+track.String(), Proposal(track, domain.Address{1}, 1))
		add("registry/"+track.String(), Registry(track, 0))
	}
	add("pool", Pool(Registry(domain.TrackSpot, 0)))

	// Same nonce, different proposer.
	add("proposal/other", Proposal(domain.TrackToken, domain.Address{2}, 1))
	// Same index, different track already covered; same track, next index.
	add("registry/next", Registry(domain.TrackToken, 1))
}
