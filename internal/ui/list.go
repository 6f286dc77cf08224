package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sp2yt/internal/models"
)

var _ list.Item = resolutionItem{}

// resolutionItem wraps [models.Resolution] to implement [list.Item].
type resolutionItem struct {
	resolution models.Resolution
}

func (i resolutionItem) FilterValue() string { return i.resolution.Query }
func (i resolutionItem) Title() string       { return i.resolution.Track.Display() }
func (i resolutionItem) Description() string {
	if !i.resolution.Found {
		return "no match"
	}
	return "→ " + i.resolution.VideoID
}

func resolutionItems(rs models.Resolutions, missesOnly bool) []list.Item {
	items := make([]list.Item, 0, len(rs))
	for _, r := range rs {
		if missesOnly && r.Found {
			continue
		}
		items = append(items, resolutionItem{resolution: r})
	}
	return items
}
