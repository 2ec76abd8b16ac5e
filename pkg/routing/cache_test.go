package routing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

func TestCachingProvider_HitAfterMiss(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	stub := &stubProvider{routes: []Route{{Points: []geo.LatLng{amsterdam, haarlem}, Distance: 1234}}}
	p := NewCachingProvider(stub, client, time.Hour)
	req := Request{From: amsterdam, To: haarlem}

	for i := 0; i < 3; i++ {
		routes, err := p.Route(context.Background(), req)
		if err != nil {
			t.Fatalf("Route: %v", err)
		}
		if len(routes) != 1 || routes[0].Distance != 1234 || len(routes[0].Points) != 2 {
			t.Fatalf("unexpected routes %+v", routes)
		}
	}
	if stub.calls != 1 {
		t.Errorf("expected upstream to be called once, got %d", stub.calls)
	}

	key := CacheKey(stub.Name(), req)
	if !s.Exists(key) {
		t.Fatalf("expected key %s in redis", key)
	}
	if ttl := s.TTL(key); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}
}

func TestCachingProvider_DoesNotCacheEmpty(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	stub := &stubProvider{}
	p := NewCachingProvider(stub, client, 0)
	req := Request{From: amsterdam, To: haarlem}
	p.Route(context.Background(), req)
	p.Route(context.Background(), req)
	if stub.calls != 2 {
		t.Errorf("empty results must not be cached, upstream calls = %d", stub.calls)
	}
}

func TestCachingProvider_RedisDownFallsThrough(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	stub := &stubProvider{routes: []Route{{Distance: 1}}}
	routes, err := NewCachingProvider(stub, client, time.Minute).Route(context.Background(), Request{From: amsterdam, To: haarlem})
	if err != nil {
		t.Fatalf("cache outage must not fail routing: %v", err)
	}
	if len(routes) != 1 || stub.calls != 1 {
		t.Errorf("expected upstream result, got %d routes after %d calls", len(routes), stub.calls)
	}
}

func TestCacheKey(t *testing.T) {
	base := Request{From: amsterdam, To: haarlem}
	k1 := CacheKey("osrm/cycling", base)
	if k1 != "route:osrm/cycling:52.37022,4.89517;52.38739,4.64622" {
		t.Errorf("unexpected key %s", k1)
	}

	alt := base
	alt.Alternatives = true
	avoid := base
	avoid.Avoid = []geo.LatLng{{Lat: 1, Lng: 2}}
	avoid2 := base
	avoid2.Avoid = []geo.LatLng{{Lat: 1, Lng: 3}}

	keys := map[string]bool{k1: true}
	for _, k := range []string{CacheKey("osrm/cycling", alt), CacheKey("osrm/cycling", avoid), CacheKey("osrm/cycling", avoid2), CacheKey("brouter/mtb", base)} {
		if keys[k] {
			t.Errorf("duplicate key %s", k)
		}
		keys[k] = true
	}
}
