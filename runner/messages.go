package runner

import (
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/engine"
)

const timeLayout = "2006-01-02 15:04:05"

func openedMessage(p engine.Position, baseAsset string) string {
	return fmt.Sprintf("[%s] Position Opened (%s)\nEntry Price: %.2f\nSize: %.4f %s\nStop Loss: %.2f",
		p.EntryTime.Format(timeLayout), p.Side.Label(), p.EntryPrice, p.Size, baseAsset, p.StopLoss)
}

func closedMessage(t engine.Trade) string {
	return fmt.Sprintf("[%s] Position Closed (%s)\nExit Price: %.2f\nProfit: %.2f USDT\nType: %s",
		t.ExitTime.Format(timeLayout), t.Side.Label(), t.TriggerPrice, t.Profit, t.Reason.Label())
}

func haltedMessage(at time.Time, limit float64) string {
	return fmt.Sprintf("[%s] Daily loss limit ($%g) reached. Bot stopped.", at.Format(timeLayout), limit)
}

func dailyReportMessage(day time.Time, s engine.Stats, available float64) string {
	return fmt.Sprintf("Daily Report - %s\nTotal Profit: %.2f USDT\nWin Rate: %.2f%%\nTrades: %d\nBankroll: %.2f USDT",
		day.Format(time.DateOnly), s.TotalProfit, s.WinRate()*100, s.Count, available)
}

// StatusText renders a status snapshot for the operator.
func StatusText(s Status) string {
	text := fmt.Sprintf("Bot Status\nRunning: %t\nBankroll: %.2f USDT\nDaily Loss: %.2f USDT\nOpen Position: %t\nTrades Today: %d",
		s.Running, s.Available, s.DailyLoss, s.OpenPosition, s.TradesToday)
	if s.OpenPosition {
		text += fmt.Sprintf("\nUnrealized P/L: %.2f USDT", s.Unrealized)
	}
	return text
}
