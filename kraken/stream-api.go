package kraken

import (
	"github.com/spooky-finn/go-kraken-bridge/domain"
)

type KrakenStreamAPI struct {
	streamClient *KrakenStreamClient
}

func NewKrakenStreamAPI(client *KrakenStreamClient) *KrakenStreamAPI {
	return &KrakenStreamAPI{
		streamClient: client,
	}
}

// BookStream subscribes to a pair's book feed and delivers classified
// messages in arrival order. The stream closes when the underlying
// connection dies.
func (s *KrakenStreamAPI) BookStream(symbol *domain.MarketSymbol, depth int) (*domain.Subscription[*BookMessage], error) {
	subscription, err := s.streamClient.Subscribe(symbol, depth)
	if err != nil {
		return nil, err
	}

	ch := make(chan *BookMessage)

	go func() {
		defer close(ch)

		for frame := range subscription.Stream {
			ch <- ClassifyMessage(frame)
		}
	}()

	return &domain.Subscription[*BookMessage]{
		Stream:      ch,
		Unsubscribe: subscription.Unsubscribe,
		Topic:       subscription.Topic,
	}, nil
}
