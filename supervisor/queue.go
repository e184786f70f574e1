package supervisor

// pendingRequest is one entry of the per-field operations queue: a SET,
// IMPORT, IMPORT_FROM_STRING, or REMOVE waiting to be serialized, or (via
// opsQueue.getRequest, which is not part of this FIFO) the single GET a
// step may have outstanding.
type pendingRequest struct {
	kind    fieldRequestKind
	nodeID  int32
	fieldID int32
	index   int32 // -1 for whole-field operations
	value   FieldValue
}

// opsQueue implements spec.md §4.3: a FIFO of SET/IMPORT/REMOVE requests
// with SET coalescing, plus a single in-flight GET slot per step.
type opsQueue struct {
	pending    []*pendingRequest
	getRequest *pendingRequest
}

func newOpsQueue() *opsQueue {
	return &opsQueue{}
}

// enqueueSet appends a SET request, or, if a SET for the exact same
// (node, field, index) target is already queued, overwrites its value
// in place (last-writer-wins coalescing) rather than appending a
// duplicate entry.
func (q *opsQueue) enqueueSet(nodeID, fieldID, index int32, value FieldValue) {
	for _, p := range q.pending {
		if p.kind == requestSet && p.nodeID == nodeID && p.fieldID == fieldID && p.index == index {
			p.value = value
			return
		}
	}
	q.pending = append(q.pending, &pendingRequest{kind: requestSet, nodeID: nodeID, fieldID: fieldID, index: index, value: value})
}

// pendingSetValue implements read-your-writes: if a SET for this exact
// target is already queued, the value a subsequent GET should observe is
// the queued value, not whatever the simulator currently holds.
func (q *opsQueue) pendingSetValue(nodeID, fieldID, index int32) (FieldValue, bool) {
	for i := len(q.pending) - 1; i >= 0; i-- {
		p := q.pending[i]
		if p.kind == requestSet && p.nodeID == nodeID && p.fieldID == fieldID && p.index == index {
			return p.value, true
		}
	}
	return FieldValue{}, false
}

// enqueueInsert appends an INSERT request for a non-node MF field
// element at index (already normalized and bounds-checked by the
// caller against validateInsertIndex's inclusive upper bound).
func (q *opsQueue) enqueueInsert(nodeID, fieldID, index int32, value FieldValue) {
	q.pending = append(q.pending, &pendingRequest{kind: requestInsert, nodeID: nodeID, fieldID: fieldID, index: index, value: value})
}

func (q *opsQueue) enqueueImport(nodeID, fieldID, index int32, nodeString string) {
	q.pending = append(q.pending, &pendingRequest{
		kind: requestImportFromString, nodeID: nodeID, fieldID: fieldID, index: index,
		value: FieldValue{Type: SFString, Str: nodeString},
	})
}

func (q *opsQueue) enqueueRemove(nodeID, fieldID, index int32) {
	q.pending = append(q.pending, &pendingRequest{kind: requestRemove, nodeID: nodeID, fieldID: fieldID, index: index})
}

// requestGet registers the single in-flight GET for this step. Issuing a
// GET for a different target while one is already outstanding is
// rejected with ErrGetInFlight; the caller (Engine) must flush first.
func (q *opsQueue) requestGet(nodeID, fieldID int32) error {
	if q.getRequest != nil && (q.getRequest.nodeID != nodeID || q.getRequest.fieldID != fieldID) {
		return ErrGetInFlight
	}
	q.getRequest = &pendingRequest{kind: requestGet, nodeID: nodeID, fieldID: fieldID, index: -1}
	return nil
}

// hasGetInFlight reports whether a GET is currently queued.
func (q *opsQueue) hasGetInFlight() bool {
	return q.getRequest != nil
}

// drain returns and clears the queued SET/IMPORT/REMOVE requests, in
// FIFO order, along with the single pending GET (if any). Called once
// per step by the serializer; command slots and this queue are both
// cleared after a successful flush.
func (q *opsQueue) drain() (sets []*pendingRequest, get *pendingRequest) {
	sets, q.pending = q.pending, nil
	get, q.getRequest = q.getRequest, nil
	return sets, get
}
