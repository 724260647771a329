package peers

//PeerSet is the set of node identifiers forming a cluster. It is built
//once, from the handshake's id list, and never mutated; the order of
//the ids is the order the handshake announced them in.
type PeerSet struct {
	IDs []string `json:"ids"`

	byID map[string]bool
}

//NewPeerSet creates a new PeerSet from a list of node ids. Duplicates
//are dropped, first occurrence wins.
func NewPeerSet(ids []string) *PeerSet {
	peerSet := &PeerSet{
		byID: make(map[string]bool, len(ids)),
	}

	for _, id := range ids {
		if peerSet.byID[id] {
			continue
		}
		peerSet.byID[id] = true
		peerSet.IDs = append(peerSet.IDs, id)
	}

	return peerSet
}

//Contains reports whether id is a member of the set.
func (peerSet *PeerSet) Contains(id string) bool {
	return peerSet.byID[id]
}

//Others returns the members of the set except self, preserving order.
//The returned slice is a fresh copy.
func (peerSet *PeerSet) Others(self string) []string {
	res := []string{}

	for _, id := range peerSet.IDs {
		if id != self {
			res = append(res, id)
		}
	}

	return res
}

//Len returns the number of ids in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.IDs)
}
