package guard

import (
	"fmt"
	"regexp"
	"strconv"
)

// prescanWindow bounds how much of the payload the pre-scan inspects.
// Scanning only the head keeps rejection cheap on very large uploads.
const prescanWindow = 1 << 20 // 1 MiB

// pageMarkerRe matches the /Type /Page marker of a page object. The word
// boundary keeps /Type /Pages tree nodes from being counted as pages.
var (
	pageMarkerRe = regexp.MustCompile(`/Type\s*/Page\b`)
	pagesNodeRe  = regexp.MustCompile(`/Type\s*/Pages`)
	countRe      = regexp.MustCompile(`/Count\s+(\d+)`)
)

// PrecheckComplexity estimates the page count of a raw PDF payload and fails
// with ErrPageLimitExceeded when the estimate exceeds maxPages.
//
// Two heuristics run over the leading 1 MiB only: counting /Type /Page
// object markers, and reading the largest /Count metadata field (present on
// page-tree nodes). The larger estimate wins. Both can over- or under-count
// on exotic files; this is an intentional speed/precision tradeoff that
// favors early rejection, never a substitute for the real parse.
func PrecheckComplexity(data []byte, maxPages int) error {
	window := data
	if len(window) > prescanWindow {
		window = window[:prescanWindow]
	}

	markers := len(pageMarkerRe.FindAll(window, -1))

	declared := 0
	if pagesNodeRe.Match(window) {
		for _, m := range countRe.FindAllSubmatch(window, -1) {
			if n, err := strconv.Atoi(string(m[1])); err == nil && n > declared {
				declared = n
			}
		}
	}

	estimate := markers
	if declared > estimate {
		estimate = declared
	}

	if estimate > maxPages {
		return fmt.Errorf("%w: estimated %d pages (max %d)", ErrPageLimitExceeded, estimate, maxPages)
	}
	return nil
}
