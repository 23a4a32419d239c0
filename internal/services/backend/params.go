package backend

// clientOwnedKeys carry the prompt, the model, and the response framing. The
// client sets them after sampling parameters are merged.
var clientOwnedKeys = []string{"model", "prompt", "messages", "stream"}

// MergeParams folds sampling parameters into a request body in place.
//
// Values from src replace those in dst, except that two objects are merged
// recursively. Keys missing from dst are added verbatim.
func MergeParams(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		existingMap, existingIsMap := dst[key].(map[string]any)
		valueMap, valueIsMap := value.(map[string]any)
		if existingIsMap && valueIsMap {
			dst[key] = MergeParams(existingMap, valueMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

// applyOwnedKeys copies the client-owned keys of defaults over body and drops
// any the adapter does not send.
func applyOwnedKeys(body, defaults map[string]any) map[string]any {
	for _, key := range clientOwnedKeys {
		if value, ok := defaults[key]; ok {
			body[key] = value
			continue
		}
		delete(body, key)
	}
	return body
}
