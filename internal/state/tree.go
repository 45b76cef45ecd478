package state

// setIn returns a copy of n with leaf placed at segs. Only nodes along segs
// are copied; siblings are shared. A non-object on the way is replaced by
// an object.
func setIn(n *node, segs []string, leaf *node) *node {
	if len(segs) == 0 {
		return leaf
	}
	var child *node
	if n != nil && n.kind == KindObject {
		child = n.fields[segs[0]]
	}
	out := copyObject(n, 1)
	out.fields[segs[0]] = setIn(child, segs[1:], leaf)
	return out
}

// deleteIn returns a copy of n without the value at segs and whether
// anything was removed. When nothing is removed n is returned unchanged.
func deleteIn(n *node, segs []string) (*node, bool) {
	if n == nil || n.kind != KindObject || len(segs) == 0 {
		return n, false
	}
	child, ok := n.fields[segs[0]]
	if !ok {
		return n, false
	}
	out := copyObject(n, 0)
	if len(segs) == 1 {
		delete(out.fields, segs[0])
		return out, true
	}
	updated, removed := deleteIn(child, segs[1:])
	if !removed {
		return n, false
	}
	out.fields[segs[0]] = updated
	return out, true
}

// mergeNodes deep-merges src into dst. Objects merge key by key; any other
// pairing is replaced by src. Unchanged dst children are shared.
func mergeNodes(dst, src *node) *node {
	if dst == nil || dst.kind != KindObject || src == nil || src.kind != KindObject {
		return src
	}
	out := copyObject(dst, len(src.fields))
	for k, sv := range src.fields {
		out.fields[k] = mergeNodes(out.fields[k], sv)
	}
	return out
}

// copyObject returns a new object node with the fields of n, which may be
// nil or a non-object, in which case the copy is empty.
func copyObject(n *node, extra int) *node {
	if n == nil || n.kind != KindObject {
		return &node{kind: KindObject, fields: make(map[string]*node, extra)}
	}
	fields := make(map[string]*node, len(n.fields)+extra)
	for k, v := range n.fields {
		fields[k] = v
	}
	return &node{kind: KindObject, fields: fields}
}
