package merge

import "strings"

// Resolve reconciles the client-declared ordering against the files actually
// received and returns the final merge sequence.
//
// For each descriptor entry, in order, the first not-yet-consumed file whose
// storage identifier starts with that entry is appended. Entries that match
// nothing are skipped silently; a descriptor naming a missing file is not an
// error. Files the descriptor never mentions are appended afterwards in
// receipt order, so every received file appears exactly once: nothing is
// dropped and nothing is duplicated.
//
// Resolve is total and deterministic. An empty or nil descriptor degenerates
// to receipt order.
func Resolve(order []string, files []UploadedFile) []UploadedFile {
	resolved := make([]UploadedFile, 0, len(files))
	consumed := make([]bool, len(files))

	for _, id := range order {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		for i := range files {
			if consumed[i] {
				continue
			}
			if strings.HasPrefix(files[i].StorageID, id) {
				resolved = append(resolved, files[i])
				consumed[i] = true
				break
			}
		}
	}

	for i := range files {
		if !consumed[i] {
			resolved = append(resolved, files[i])
		}
	}

	return resolved
}
