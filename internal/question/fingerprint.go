// File path: internal/question/fingerprint.go
package question

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/studyaid/quizmatch/internal/textnorm"
)

// NormalizedAnswerJoin folds every answer through text normalization and
// joins them with "|", preserving input order. Answer order carries meaning
// for identity: the same options in a different order produce a different
// join.
func NormalizedAnswerJoin(answers []string) string {
	if len(answers) == 0 {
		return ""
	}
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = textnorm.Normalize(a)
	}
	return strings.Join(parts, "|")
}

// Fingerprint derives the content identity hash for a question and its
// answer set: sha256 over the normalized question text, a NUL separator,
// and the order-preserving normalized answer join. Hex encoded.
func Fingerprint(questionHTML string, answersHTML []string) string {
	h := sha256.New()
	h.Write([]byte(textnorm.Normalize(questionHTML)))
	h.Write([]byte{0})
	h.Write([]byte(NormalizedAnswerJoin(answersHTML)))
	return hex.EncodeToString(h.Sum(nil))
}
