package main

import (
	"chat-presence/client"
	"chat-presence/domain"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <counterpart>",
		Short: "Print the conversation with counterpart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if config.Token == "" {
				return fmt.Errorf("CHAT_TOKEN is required")
			}
			store := client.NewHTTPStore(config.ServerURL, config.Token, nil)
			messages, err := store.ListMessages(cmd.Context(), domain.UserID(args[0]))
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), messages)
			return nil
		},
	}
}

func renderHistory(w io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "From", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	for _, m := range messages {
		text := m.Text
		if m.Image != "" {
			text += " [image]"
		}
		table.Append([]string{m.CreatedAt.Local().Format("02/01 15:04"), m.SenderID.String(), text})
	}
	table.Render()
}
