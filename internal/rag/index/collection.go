package index

import (
	"fmt"
	"hash/fnv"
	"regexp"
)

var collectionCharset = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// CollectionName derives a deterministic vector collection name from a
// document folder name. Characters outside [a-zA-Z0-9_-] are stripped; when
// fewer than 3 usable characters remain the name falls back to a hash of the
// original so the same folder always maps to the same collection.
func CollectionName(folderName string) string {
	cleaned := collectionCharset.ReplaceAllString(folderName, "")
	if len(cleaned) < 3 {
		h := fnv.New32a()
		h.Write([]byte(folderName))
		return fmt.Sprintf("rag_doc_%x", h.Sum32())
	}
	return "rag_" + cleaned
}
