package localdb

import "fmt"

// Key Namespace Design
// ====================
//
// BadgerDB is a key-value store, so prefixed keys organize the row families
// into namespaces. Range scans over a prefix implement the queries each
// family needs.
//
// Row Family            Prefix   Key Format                          Value
// =========================================================================
// Mapping (forward)     "m:f:"   m:f:<federatedID>                   hashID
// Mapping (reverse)     "m:h:"   m:h:<hashID>                        federatedID
// Tag (by owner)        "t:o:"   t:o:<owner>:<type>:<entryID>        Tag (JSON)
// Tag (by entry)        "t:e:"   t:e:<entryID>:<owner>:<type>        Tag (JSON)
// Security (by entry)   "s:e:"   s:e:<entryID>:<subject>             Record (JSON)
// Internal folders      "n:d:"   n:d:<id>                            Folder (JSON)
// Internal files        "n:f:"   n:f:<id>                            File (JSON)
// Internal children     "n:c:"   n:c:<parentID>:<kind>:<id>          title
// Id sequence           "n:seq"  n:seq                               uint64
//
// Rationale:
//
//   - Mapping rows are stored in both directions so that cascade deletes can
//     range-scan by federated-path prefix while tag/security lookups resolve
//     a hash id back to its path in O(1).
//   - Tag rows are denormalized the same way: the by-owner form serves the
//     Recent/Favorites/Templates views, the by-entry form serves the status
//     overlay and the deletion cascade.
//   - Internal children keys embed the parent id so one prefix scan lists a
//     folder; kind is "d" or "f" so folders and files can be scanned
//     independently and concurrently.
//   - Entry ids inside tag and security keys are strings: the decimal id for
//     internal entries, the mapping hash id for federated entries. That is
//     what lets local metadata survive a federated rename, because the hash
//     id is stable once created even though the path it maps to changes.

const (
	prefixMappingForward = "m:f:"
	prefixMappingReverse = "m:h:"
	prefixTagByOwner     = "t:o:"
	prefixTagByEntry     = "t:e:"
	prefixSecurityEntry  = "s:e:"
	prefixFolder         = "n:d:"
	prefixFile           = "n:f:"
	prefixChildren       = "n:c:"
)

var keyIDSequence = []byte("n:seq")

func folderKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%012d", prefixFolder, id))
}

func fileKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%012d", prefixFile, id))
}

func childKey(parentID int, isFolder bool, id int) []byte {
	kind := "f"
	if isFolder {
		kind = "d"
	}
	return []byte(fmt.Sprintf("%s%012d:%s:%012d", prefixChildren, parentID, kind, id))
}

func childPrefix(parentID int) []byte {
	return []byte(fmt.Sprintf("%s%012d:", prefixChildren, parentID))
}

func mappingForwardKey(federatedID string) []byte {
	return []byte(prefixMappingForward + federatedID)
}

func mappingReverseKey(hashID string) []byte {
	return []byte(prefixMappingReverse + hashID)
}

func tagOwnerKey(owner, tagType, entryID string) []byte {
	return []byte(prefixTagByOwner + owner + ":" + tagType + ":" + entryID)
}

func tagEntryKey(entryID, owner, tagType string) []byte {
	return []byte(prefixTagByEntry + entryID + ":" + owner + ":" + tagType)
}

func securityKey(entryID, subject string) []byte {
	return []byte(prefixSecurityEntry + entryID + ":" + subject)
}
