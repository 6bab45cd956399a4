package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
	"github.com/sho0pi/naturaltime"
)

var sinceParser *naturaltime.Parser

func init() {
	var err error
	sinceParser, err = naturaltime.New()
	if err != nil {
		sys.LogError(sys.MsgGenericError, err)
	}
}

// ParseSince turns "yesterday" or "last monday" into a boundary no later than now.
func ParseSince(input string, now time.Time) (time.Time, bool) {
	input = strings.TrimSpace(input)
	if input == "" || sinceParser == nil {
		return time.Time{}, false
	}
	result, err := sinceParser.ParseDate(input, now)
	if err != nil || result == nil || result.After(now) {
		return time.Time{}, false
	}
	return *result, true
}

// FormatStats renders the admin view. posted is the number of confessions
// with a recorded public post, used for the never-posted count.
func FormatStats(st confess.Stats, posted int) string {
	orphans := st.Total - posted
	if orphans < 0 {
		orphans = 0
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgConfessionStatsBody, st.Total, st.Today, st.UniqueSubmitters, orphans))
	if st.First != nil {
		sb.WriteString(fmt.Sprintf(sys.MsgConfessionStatsFirst, st.First.AnonymousID, st.First.CreatedAt.Unix()))
	}
	if st.Latest != nil {
		sb.WriteString(fmt.Sprintf(sys.MsgConfessionStatsLatest, st.Latest.AnonymousID, st.Latest.CreatedAt.Unix()))
	}
	return sb.String()
}

func handleConfessionStats(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	store := confessions.Store()

	if !interactionIsAdmin(event) {
		confessRespond(event, fmt.Sprintf(sys.MsgConfessionStatsOwn, store.CountForSubmitter(event.User().ID)))
		return
	}

	now := time.Now()
	st := confess.QueryStats(store, now)

	posted := st.Total
	if sys.DB != nil {
		ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
		defer cancel()
		if n, err := sys.GetConfessionPostsCount(ctx); err == nil {
			posted = n
		}
	}

	body := FormatStats(st, posted)
	if since, ok := data.OptString("since"); ok && strings.TrimSpace(since) != "" {
		boundary, parsed := ParseSince(since, now)
		if !parsed {
			confessRespond(event, fmt.Sprintf(sys.ErrConfessionBadSince, since))
			return
		}
		body += fmt.Sprintf(sys.MsgConfessionStatsSince, fmt.Sprintf("<t:%d:f>", boundary.Unix()), store.CountOnOrAfter(boundary))
	}

	if err := event.CreateMessage(sys.NewV2Text(true, sys.MsgConfessionStatsHeader, body)); err != nil {
		sys.LogDebug(sys.MsgConfessionRespondFail, err)
	}
}
