package usecase

import (
	"log"
	"os"

	"github.com/spooky-finn/go-kraken-bridge/domain"
	promclient "github.com/spooky-finn/go-kraken-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-kraken-bridge/kraken"
)

var logger = log.New(os.Stdout, "[book-mirror-usecase] ", log.LstdFlags)

// BookMirrorUseCase starts one maintainer per mirrored pair and serves
// snapshots of the local books. Each pair owns an independent order book;
// nothing is shared between maintainers beyond the websocket connection.
type BookMirrorUseCase struct {
	streamAPI *kraken.KrakenStreamAPI
	storage   *domain.OrderBookStorage

	maintainers []*kraken.OrderbookMaintainer
}

func NewBookMirrorUseCase(streamAPI *kraken.KrakenStreamAPI) *BookMirrorUseCase {
	return &BookMirrorUseCase{
		streamAPI: streamAPI,
		storage:   domain.NewOrderBookStorage(),
	}
}

// Mirror begins maintaining a pair's book and returns it together with the
// maintainer's event stream. The event stream closes when the feed dies.
func (u *BookMirrorUseCase) Mirror(symbol *domain.MarketSymbol, depth int) (*domain.OrderBook, <-chan kraken.BookEvent, error) {
	maintainer := kraken.NewOrderBookMaintainer(u.streamAPI)

	orderBook, err := maintainer.Start(symbol, depth)
	if err != nil {
		return nil, nil, err
	}

	u.storage.Add(symbol, orderBook)
	u.maintainers = append(u.maintainers, maintainer)
	promclient.OpenOrderBookGauge.Set(float64(u.storage.OrderBookCount()))

	logger.Printf("mirroring order book for %s at depth %d", symbol, depth)
	return orderBook, maintainer.Events, nil
}

// GetOrderBookSnapshot serves the current top-of-book view from the local
// mirror.
func (u *BookMirrorUseCase) GetOrderBookSnapshot(symbol *domain.MarketSymbol, limit int) (*domain.BookSnapshot, error) {
	orderBook, err := u.storage.Get(symbol)
	if err != nil {
		return nil, err
	}

	return orderBook.TakeSnapshot(limit), nil
}

func (u *BookMirrorUseCase) Stop() {
	for _, maintainer := range u.maintainers {
		maintainer.Stop()
	}
}
