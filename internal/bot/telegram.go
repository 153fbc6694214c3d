package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram message bodies are capped at 4096 characters; chunk below that.
const replyChunkSize = 4000

// Transcriber is the slice of the speech-to-text client the bot needs;
// satisfied by *stt.Client. Nil disables voice support.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Bot is the Telegram transport: it long-polls for operator messages,
// transcribes voice notes, and feeds everything through the responder.
type Bot struct {
	api         *tgbotapi.BotAPI
	responder   *Responder
	transcriber Transcriber
	allowed     map[string]bool
	calendarURL string
}

func New(token string, responder *Responder, transcriber Transcriber, allowedChatIDs []string, calendarURL string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	allowed := make(map[string]bool, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		if id != "" {
			allowed[id] = true
		}
	}

	return &Bot{
		api:         api,
		responder:   responder,
		transcriber: transcriber,
		allowed:     allowed,
		calendarURL: calendarURL,
	}, nil
}

// Run long-polls until the context is cancelled. Updates are handled one at
// a time; mutations serialize on the coordinator lock anyway.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("Telegram bot authorized as @%s", b.api.Self.UserName)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Channel posts and anonymous group admins carry no sender to authorize.
	if msg.From == nil {
		return
	}
	if len(b.allowed) > 0 && !b.allowed[fmt.Sprint(msg.From.ID)] {
		log.Printf("Unauthorized access attempt from %s (%d)", msg.From.UserName, msg.From.ID)
		b.reply(msg.Chat.ID, "❌ No tenés autorización para usar este bot. Contactá al administrador si necesitás acceso.")
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Voice != nil || msg.Audio != nil:
		b.handleAudio(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID,
			"¡Hola! 👋 Soy el asistente de reservas de Cabañas Las Chacras.\n\n"+
				"Podés escribirme en lenguaje natural para crear, modificar, cancelar o consultar reservas.\n"+
				"🎤 También podés mandarme mensajes de voz.\n\n"+
				"Comandos:\n• /calendar — link al calendario online\n• /sync — forzar la publicación del calendario")
	case "calendar":
		b.reply(msg.Chat.ID, b.calendarMessage())
	case "sync":
		b.reply(msg.Chat.ID, b.syncReply(ctx))
	default:
		b.reply(msg.Chat.ID, "No conozco ese comando. Probá /start.")
	}
}

// syncReply forces one publication under the same deadline as every other
// operation, so a wedged git subprocess cannot hold the lock forever.
func (b *Bot) syncReply(ctx context.Context) string {
	opCtx, cancel := context.WithTimeout(ctx, b.responder.timeout)
	defer cancel()

	result, err := b.responder.coord.PublishCurrent(opCtx)
	if err != nil {
		return fmt.Sprintf("❌ No pude sincronizar: %v", err)
	}
	return withWarnings(fmt.Sprintf("📤 Calendario sincronizado (%s).", result.Published), result)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if wantsCalendarLink(msg.Text) {
		b.reply(msg.Chat.ID, b.calendarMessage())
		return
	}
	b.typing(msg.Chat.ID)
	b.reply(msg.Chat.ID, b.responder.Respond(ctx, msg.Text))
}

func (b *Bot) handleAudio(ctx context.Context, msg *tgbotapi.Message) {
	if b.transcriber == nil {
		b.reply(msg.Chat.ID, "🎤 La transcripción de voz no está configurada. Escribime el pedido por texto.")
		return
	}
	b.typing(msg.Chat.ID)

	fileID := ""
	if msg.Voice != nil {
		fileID = msg.Voice.FileID
	} else {
		fileID = msg.Audio.FileID
	}

	text, err := b.transcribe(ctx, fileID)
	if err != nil {
		log.Printf("Voice transcription failed: %v", err)
		b.reply(msg.Chat.ID, "❌ No pude transcribir el audio. Escribime el pedido por texto.")
		return
	}

	// Echo the transcription so the operator can catch mishearings.
	b.reply(msg.Chat.ID, fmt.Sprintf("🎤 Esto escuché: %q", text))
	b.reply(msg.Chat.ID, b.responder.Respond(ctx, text))
}

func (b *Bot) transcribe(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve audio file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download audio: status %d", resp.StatusCode)
	}
	return b.transcriber.Transcribe(ctx, resp.Body, "voice.ogg")
}

func (b *Bot) calendarMessage() string {
	if b.calendarURL == "" {
		return "📅 El calendario online no está configurado."
	}
	return fmt.Sprintf("📅 Calendario de Reservas - Cabañas Las Chacras\n\n🌐 %s", b.calendarURL)
}

func (b *Bot) reply(chatID int64, text string) {
	for _, chunk := range chunks(text, replyChunkSize) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			log.Printf("Failed to send telegram message: %v", err)
		}
	}
}

func (b *Bot) typing(chatID int64) {
	b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func wantsCalendarLink(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"calendario", "calendar", "link", "enlace", "ver reservas", "pagina", "página", "web"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func chunks(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var out []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}
