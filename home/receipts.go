package home

import (
	"context"
	"time"

	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

// PostReceipts records where each confession was published, for lookup links
// and the never-posted count.
var PostReceipts = confess.ObserverFunc(func(ctx context.Context, res confess.Result) {
	if res.PublicRef.MessageID == 0 || sys.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := sys.SaveConfessionPost(ctx, &sys.ConfessionPost{
		AnonymousID: res.Confession.AnonymousID,
		ChannelID:   res.PublicRef.ChannelID,
		MessageID:   res.PublicRef.MessageID,
		PostedAt:    res.Confession.CreatedAt,
	})
	if err != nil {
		sys.LogError(sys.MsgConfessionReceiptFail, res.Confession.AnonymousID, err)
	}
})
