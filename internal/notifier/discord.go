package notifier

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/laschacras/cabanas-api/internal/models"
)

type Notifier interface {
	NotifyReservation(operation string, r models.Reservation) error
}

// DiscordNotifier mirrors booking activity into an announcement channel so
// the household sees changes without asking the bot.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}, nil
}

func (n *DiscordNotifier) NotifyReservation(operation string, r models.Reservation) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	status := map[string]string{
		"create": "new reservation 🎉",
		"modify": "reservation updated",
		"delete": "reservation cancelled 😢 👎",
	}[operation]
	if status == "" {
		status = operation
	}

	noteStr := ""
	if r.Notes != "" {
		noteStr = fmt.Sprintf("\n**Notes:** %s", r.Notes)
	}

	message := fmt.Sprintf("🏡 **Booking Update**\n**Guest:** %s\n**Status:** %s\n**Cabin:** %s\n**Dates:** %s - %s\n**Total:** $%g (deposit $%g)%s",
		r.GuestName,
		status,
		r.Cabin,
		r.CheckIn.Format(models.DateLayout),
		r.CheckOut().Format(models.DateLayout),
		r.TotalPrice,
		r.Deposit,
		noteStr,
	)

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
