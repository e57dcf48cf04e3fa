// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"math"

	"github.com/pdiddy/patent-chooser/internal/notify"
)

// datasourceMessages turns provider messages into user alerts: the
// navigator user_info with its own kind, and the top-level message as a
// warning.
func datasourceMessages(resp NormalizedResponse) []notify.Message {
	var out []notify.Message
	if resp.UserInfo != nil {
		out = append(out, notify.Message{Text: resp.UserInfo.Message, Kind: resp.UserInfo.Kind, Alert: true})
	}
	if resp.Message != "" {
		out = append(out, notify.Message{Text: resp.Message, Kind: notify.KindWarning, Alert: true})
	}
	return out
}

// pageContext is what the family-removal notice needs to know about the
// local page that was displayed.
type pageContext struct {
	LocalHits   int
	LocalLimit  int
	RangeEnd    int
	RemoteLimit int
	ResultCount int
}

// familyRemovalNotice explains how many family members the provider removed
// from the remote page and estimates the effect on the total. When the
// local page came back empty it recommends the next page with results. The
// recommendation is best-effort guidance.
func familyRemovalNotice(resp NormalizedResponse, pc pageContext) []notify.Message {
	pp := resp.Postprocess
	if pp == nil || pp.Action != PostprocessFamilyRemove {
		return nil
	}

	ratio := 0.0
	if resp.CountPage > 0 {
		ratio = float64(pp.Removed) / float64(resp.CountPage)
	}
	estimated := float64(resp.Total) * (1 - ratio)
	saved := float64(resp.Total) - estimated
	start, end := resp.Offset+1, resp.Offset+resp.Limit

	var text string
	if pp.Removed > 0 {
		text = fmt.Sprintf("Removed %d family members from results %d-%d. "+
			"Estimated total after removal: %d documents, %d fewer to review.",
			pp.Removed, start, end, int(math.Floor(estimated)), int(math.Floor(saved)))
	} else {
		text = fmt.Sprintf("No family members removed from results %d-%d.", start, end)
	}
	out := []notify.Message{{Text: text, Kind: notify.KindInfo, Alert: true}}

	if pc.LocalHits == 0 && pc.LocalLimit > 0 && pc.RangeEnd > 0 && pc.RemoteLimit > 0 {
		nextRemote := ((pc.RangeEnd-1)/pc.RemoteLimit+1)*pc.RemoteLimit + 1
		nextLocal := nextRemote/pc.LocalLimit + 1
		maxLocal := int(math.Ceil(float64(pc.ResultCount) / float64(pc.LocalLimit)))

		empty := "This page is empty because all of its documents were family members of earlier results."
		if nextLocal <= maxLocal {
			empty += fmt.Sprintf(" Results continue on page %d.", nextLocal)
		}
		out = append(out, notify.Message{Text: empty, Kind: notify.KindInfo, Alert: true})
	}
	return out
}

// hitsWarnings reports unknown or unreachable totals.
func hitsWarnings(datasource string, hits, maximum int, unknown bool) []notify.Message {
	var out []notify.Message
	if unknown {
		out = append(out, notify.Message{
			Text: fmt.Sprintf("Result count unknown at %s. Assuming %d to make paging work.", datasource, hits),
			Kind: notify.KindWarning, Alert: true,
		})
	}
	if maximum > 0 && hits > maximum {
		out = append(out, notify.Message{
			Text: fmt.Sprintf("Total hits: %d. The first %d hits are accessible from %s. "+
				"You can narrow your search by adding more search criteria.", hits, maximum, datasource),
			Kind: notify.KindWarning, Alert: true,
		})
	}
	return out
}

func noResultsMessage(datasource, query string) notify.Message {
	text := "No results."
	if query != "" {
		text = fmt.Sprintf("No results for %q at %s.", query, datasource)
	}
	return notify.Message{Text: text, Kind: notify.KindInfo, Alert: true}
}
