package symtab

// hashStr computes the FNV-1a hash used by the scope table, grounded on the
// original implementation's HashStr (original_source/src/Vartab.c) rather
// than Go's hash/fnv, since the probe sequence in find depends on this
// exact hash function producing the same values the reference compiler
// uses (spec.md §4.2: "FNV-like string hash").
func hashStr(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 16777619
	}
	return h
}
