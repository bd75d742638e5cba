package lifecycle

import (
	"sort"
	"sync"

	id "refledger/pkg/domain"
)

// chainLocks provides fine-grained serialization using sharded mutexes.
// Operations lock the shard of every participant they touch (the subject
// plus its referrer-chain neighbours), so two operations touching disjoint
// chains run concurrently while operations sharing an ancestor serialize.
//
// Shards are acquired in ascending index order, which rules out deadlock
// between overlapping operations. The mutexes are non-reentrant: an
// operation that somehow re-entered itself through an external callback
// would block rather than observe its own half-applied state.
const numChainShards = 128

type chainLocks struct {
	shards [numChainShards]sync.Mutex
}

func newChainLocks() *chainLocks {
	return &chainLocks{}
}

// Lock acquires the shards covering the given participants and returns the
// matching unlock. Duplicate keys and keys mapping to the same shard are
// collapsed; nil participants are ignored.
func (l *chainLocks) Lock(participants ...id.ParticipantID) (unlock func()) {
	shards := make([]int, 0, len(participants))
	seen := make(map[int]bool, len(participants))
	for _, p := range participants {
		if p.IsNil() {
			continue
		}
		shard := int(hashParticipant(p) % numChainShards)
		if !seen[shard] {
			seen[shard] = true
			shards = append(shards, shard)
		}
	}
	sort.Ints(shards)

	for _, shard := range shards {
		l.shards[shard].Lock()
	}
	return func() {
		for i := len(shards) - 1; i >= 0; i-- {
			l.shards[shards[i]].Unlock()
		}
	}
}

// hashParticipant uses FNV-1a over the id bytes for shard distribution.
func hashParticipant(p id.ParticipantID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	s := p.String()
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
