package home

import (
	"bytes"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
)

// exportMessage builds the CSV download, or reports an empty log.
func exportMessage(ephemeral bool) (discord.MessageCreate, error) {
	records := confessions.ExportAll()
	if len(records) == 0 {
		return discord.NewMessageCreate().
			WithContent(sys.MsgConfessionNoConfessions).
			WithEphemeral(ephemeral), nil
	}

	csvData, err := confess.ExportCSV(records)
	if err != nil {
		return discord.MessageCreate{}, err
	}

	return discord.NewMessageCreate().
		WithContent(fmt.Sprintf(sys.MsgConfessionExportHeader, len(records))).
		WithFiles(discord.NewFile(confess.ExportFileName, "Confession log", bytes.NewReader(csvData))).
		WithEphemeral(ephemeral), nil
}

func handleConfessionExport(event *events.ApplicationCommandInteractionCreate) {
	if !interactionIsAdmin(event) {
		confessRespond(event, sys.ErrConfessionNotAdmin)
		return
	}

	msg, err := exportMessage(true)
	if err != nil {
		sys.LogError(sys.MsgConfessionExportFail, err)
		confessRespond(event, sys.ErrConfessionExport)
		return
	}
	if err := event.CreateMessage(msg); err != nil {
		sys.LogError(sys.MsgConfessionExportFail, err)
	}
}

func handleLegacyConfessionsLog(event *events.MessageCreate, _ string) {
	if confessions == nil || !legacyLimiter.Allow() {
		return
	}
	client := event.Client()
	if !messageAuthorIsAdmin(client, event) {
		_, _ = client.Rest.CreateMessage(event.ChannelID, discord.NewMessageCreate().
			WithContent(sys.ErrConfessionNotAdmin).
			WithMessageReferenceByID(event.Message.ID))
		return
	}

	msg, err := exportMessage(false)
	if err != nil {
		sys.LogError(sys.MsgConfessionExportFail, err)
		msg = discord.NewMessageCreate().WithContent(sys.ErrConfessionExport)
	}
	if _, err := client.Rest.CreateMessage(event.ChannelID, msg); err != nil {
		sys.LogError(sys.MsgConfessionLegacyFail, "!confessionslog", err)
	}
}
