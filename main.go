package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/spooky-finn/go-kraken-bridge/config"
	"github.com/spooky-finn/go-kraken-bridge/domain"
	promclient "github.com/spooky-finn/go-kraken-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-kraken-bridge/kraken"
	"github.com/spooky-finn/go-kraken-bridge/usecase"
)

func main() {
	conf := config.Load()

	go promclient.StartPromClientServer(conf.MetricsAddr)

	client := kraken.NewKrakenStreamClient(conf.WebsocketEndpoint)
	if err := client.Connect(); err != nil {
		log.Fatalf("error connecting to kraken stream: %s", err)
	}

	streamAPI := kraken.NewKrakenStreamAPI(client)
	mirror := usecase.NewBookMirrorUseCase(streamAPI)
	defer mirror.Stop()

	var wg sync.WaitGroup

	for _, pair := range conf.Pairs {
		symbol, err := domain.NewMarketSymbolFromString(pair)
		if err != nil {
			log.Fatalf("invalid pair %q: %s", pair, err)
		}

		orderBook, events, err := mirror.Mirror(symbol, conf.Depth)
		if err != nil {
			log.Fatalf("failed to mirror %s: %s", symbol, err)
		}

		wg.Add(1)
		go func(orderBook *domain.OrderBook, events <-chan kraken.BookEvent) {
			defer wg.Done()
			consumeEvents(orderBook, events)
		}(orderBook, events)
	}

	// Returns only when the connection dies and every event stream closes.
	wg.Wait()
	log.Println("feed terminated, exiting")
}

func consumeEvents(orderBook *domain.OrderBook, events <-chan kraken.BookEvent) {
	for event := range events {
		switch event.Kind {
		case kraken.EventSnapshotApplied:
			log.Printf("book initialized for %s", event.Pair)
			if config.DebugMode {
				fmt.Println(orderBook)
			}

		case kraken.EventUpdateApplied:
			if config.DebugMode {
				log.Printf("checksum ok for %s: %d", event.Pair, event.Upstream)
				fmt.Println(orderBook)
			}

		case kraken.EventChecksumMismatch:
			log.Printf("checksum mismatch for %s: local=%d upstream=%d",
				event.Pair, event.Local, event.Upstream)

		case kraken.EventBadChecksum:
			log.Printf("checksum unavailable for %s: %s", event.Pair, event.Err)

		case kraken.EventSystem:
			if config.DebugMode {
				log.Printf("system message: %s", event.Event)
			}

		case kraken.EventUnknown:
			log.Printf("unknown message for pair %q ignored", event.Pair)
		}
	}
}
