package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	commandreaderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/command-reader/v1"
	marketdatav1 "github.com/muhammadchandra19/exchange-core/internal/domain/marketdata/v1"
	orderv1 "github.com/muhammadchandra19/exchange-core/internal/domain/order/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/muhammadchandra19/exchange-core/pkg/util"
)

type generator struct {
	instrumentID string
	basePrice    float64
	priceSpread  float64
	traders      []string
}

// next returns a random command: 70% limit, 20% market and 10% market data.
// Cancels need engine assigned order ids and are only sent from a file.
func (g *generator) next() commandreaderv1.Command {
	cmd := commandreaderv1.Command{ID: util.NewID()}
	roll := rand.Float64()

	switch {
	case roll < 0.1:
		mid := g.basePrice + (rand.Float64()-0.5)*g.priceSpread*0.1
		half := g.priceSpread * 0.01
		cmd.Kind = commandreaderv1.KindMarketData
		cmd.MarketData = &marketdatav1.Update{
			InstrumentID: g.instrumentID,
			LastPrice:    price(mid),
			Bid:          price(mid - half),
			Ask:          price(mid + half),
			Volume:       decimal.NewFromFloat(rand.Float64() * 100).Round(3),
		}
	case roll < 0.3:
		cmd.Kind = commandreaderv1.KindPlaceMarket
		cmd.PlaceOrder = g.order(orderv1.IOC)
	default:
		cmd.Kind = commandreaderv1.KindPlaceLimit
		cmd.PlaceOrder = g.order(orderv1.GTC)
	}

	return cmd
}

func (g *generator) order(tif orderv1.TimeInForce) *orderv1.PlaceOrderRequest {
	side := orderv1.SideSell
	if rand.Float64() < 0.5 {
		side = orderv1.SideBuy
	}

	// Buys rest below the base price, sells above.
	offset := rand.Float64() * g.priceSpread * 0.8
	p := g.basePrice + offset
	if side == orderv1.SideBuy {
		p = g.basePrice - offset
	}
	if p <= 0 {
		p = g.basePrice
	}

	req := &orderv1.PlaceOrderRequest{
		InstrumentID: g.instrumentID,
		Owner:        g.traders[rand.Intn(len(g.traders))],
		Side:         side,
		Quantity:     decimal.NewFromFloat(0.01 + rand.Float64()*9.99).Round(3),
		TimeInForce:  tif,
		ClientRef:    util.NewID(),
	}
	if tif != orderv1.IOC {
		req.Price = price(p)
	}
	return req
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(1)
}

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "commands", "Kafka command topic")
		instrument  = flag.String("instrument", "", "Instrument id the generated commands target")
		file        = flag.String("file", "", "JSON file with commands (optional, generates commands if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between commands")
		count       = flag.Int("count", 1000, "Number of commands to generate")
		basePrice   = flag.Float64("base-price", 3945.5, "Base price for orders")
		priceSpread = flag.Float64("price-spread", 200.0, "Price spread range")
		traders     = flag.String("traders", "alice,bob,carol,dave", "Trader ids (comma-separated)")
	)
	flag.Parse()

	log, err := logger.NewLogger(logger.WithService("order-producer"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	var commands []commandreaderv1.Command
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "read_file"}, logger.Field{Key: "file", Value: *file})
			return
		}
		if err := json.Unmarshal(data, &commands); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "parse_file"}, logger.Field{Key: "file", Value: *file})
			return
		}
		log.Info("Loaded commands from file", logger.Field{Key: "count", Value: len(commands)})
	} else {
		if *instrument == "" {
			log.Warn("Either -file or -instrument is required")
			return
		}
		g := &generator{
			instrumentID: *instrument,
			basePrice:    *basePrice,
			priceSpread:  *priceSpread,
			traders:      strings.Split(*traders, ","),
		}
		commands = make([]commandreaderv1.Command, 0, *count)
		for i := 0; i < *count; i++ {
			commands = append(commands, g.next())
		}
		log.Info("Generated commands", logger.Field{Key: "count", Value: len(commands)})
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()
	kinds := make(map[commandreaderv1.Kind]int)
	sent := 0

	for i, cmd := range commands {
		value, err := json.Marshal(cmd)
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "marshal_command"}, logger.Field{Key: "index", Value: i})
			continue
		}

		msg := kafka.Message{
			Key:   []byte(cmd.ID),
			Value: value,
			Time:  time.Now(),
		}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "write_command"}, logger.Field{Key: "command_id", Value: cmd.ID})
			continue
		}
		sent++
		kinds[cmd.Kind]++

		if (i+1)%100 == 0 || i == len(commands)-1 {
			log.Info("Sent commands",
				logger.Field{Key: "sent", Value: i + 1},
				logger.Field{Key: "total", Value: len(commands)},
				logger.Field{Key: "last_kind", Value: cmd.Kind},
			)
		}

		if i < len(commands)-1 {
			time.Sleep(*delay)
		}
	}

	fields := []logger.Field{{Key: "sent", Value: sent}, {Key: "total", Value: len(commands)}}
	for kind, n := range kinds {
		fields = append(fields, logger.Field{Key: string(kind), Value: n})
	}
	log.Info("Summary", fields...)
}
