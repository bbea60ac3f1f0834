// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/abelzeko/route-weather-bot/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	welcomeText = "Welcome to the Route Weather Bot! Use /weather to get the forecast for the cities of your route or /help for more information."
	helpText    = "Available commands:\n" +
		"/start - Start the bot\n" +
		"/weather - Get the weather forecast along a route\n" +
		"/cancel - Cancel the current request\n" +
		"/help - Show this help message"
	fetchingText = "⏳ Fetching weather data..."
)

// BotAPI is the part of the Telegram client the bot uses
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot          BotAPI
	userName     string
	conversation *usecases.ConversationUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, conversation *usecases.ConversationUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	t := NewTelegramBotWithAPI(bot, conversation)
	t.userName = bot.Self.UserName
	return t, nil
}

// NewTelegramBotWithAPI creates a bot handler on top of an existing client
func NewTelegramBotWithAPI(bot BotAPI, conversation *usecases.ConversationUseCase) *TelegramBot {
	return &TelegramBot{
		bot:          bot,
		conversation: conversation,
	}
}

// Start listens for updates until ctx is cancelled, handling each one on its own goroutine.
// It returns once every in-flight update has been handled.
func (t *TelegramBot) Start(ctx context.Context) {
	log.Printf("Authorized on Telegram account %s", t.userName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping the bot...")
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate processes a single Telegram update
func (t *TelegramBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		log.Printf("Received message from %s (chat %d): %s",
			userName(update.Message.From), update.Message.Chat.ID, update.Message.Text)
		t.handleMessage(ctx, update.Message)

	case update.CallbackQuery != nil:
		log.Printf("Received callback from %s: %s", userName(update.CallbackQuery.From), update.CallbackQuery.Data)
		t.handleCallback(ctx, update.CallbackQuery)
	}
}

// handleMessage processes a Telegram message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if !message.IsCommand() {
		t.sendReplies(chatID, t.conversation.HandleText(ctx, chatID, message.Text))
		return
	}

	switch message.Command() {
	case "start":
		log.Printf("Handling /start command for chat %d", chatID)
		t.conversation.Reset(chatID)
		t.sendText(chatID, welcomeText)

	case "help":
		log.Printf("Handling /help command for chat %d", chatID)
		t.sendText(chatID, helpText)

	case "weather":
		log.Printf("Handling /weather command for chat %d", chatID)
		t.sendReplies(chatID, t.conversation.StartRoute(chatID))

	case "cancel":
		log.Printf("Handling /cancel command for chat %d", chatID)
		t.sendReplies(chatID, t.conversation.Cancel(chatID))

	default:
		log.Printf("Received unknown command /%s from chat %d", message.Command(), chatID)
		t.sendText(chatID, "Unknown command. Use /help to see available commands.")
	}
}

// handleCallback processes an inline keyboard selection
func (t *TelegramBot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
	if query.Message == nil || query.Message.Chat == nil {
		log.Printf("Callback %s has no message, ignoring", query.ID)
		return
	}
	chatID := query.Message.Chat.ID

	if !usecases.IsForecastCallback(query.Data) {
		t.sendReplies(chatID, t.conversation.HandleCallback(ctx, chatID, query.Data))
		return
	}

	status, err := t.bot.Send(tgbotapi.NewMessage(chatID, fetchingText))
	if err != nil {
		log.Printf("Error sending status message: %v", err)
	}

	replies := t.conversation.HandleCallback(ctx, chatID, query.Data)

	if err == nil {
		if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, status.MessageID)); err != nil {
			log.Printf("Error deleting status message: %v", err)
		}
	}
	t.sendReplies(chatID, replies)
}

// sendReplies sends every reply in order, as a photo when it carries an image
func (t *TelegramBot) sendReplies(chatID int64, replies []usecases.Reply) {
	for _, reply := range replies {
		var msg tgbotapi.Chattable
		if reply.Image != nil {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: reply.ImageName, Bytes: reply.Image})
			photo.Caption = reply.Text
			if len(reply.Buttons) > 0 {
				photo.ReplyMarkup = inlineKeyboard(reply.Buttons)
			}
			msg = photo
		} else {
			text := tgbotapi.NewMessage(chatID, reply.Text)
			if len(reply.Buttons) > 0 {
				text.ReplyMarkup = inlineKeyboard(reply.Buttons)
			}
			msg = text
		}

		if _, err := t.bot.Send(msg); err != nil {
			log.Printf("Error sending message to chat %d: %v", chatID, err)
		}
	}
}

func (t *TelegramBot) sendText(chatID int64, text string) {
	t.sendReplies(chatID, []usecases.Reply{{Text: text}})
}

func inlineKeyboard(rows [][]usecases.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func userName(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}
	return user.UserName
}
