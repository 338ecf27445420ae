package broker

import (
	"encoding/json"

	"github.com/vitorfp/academia/event"

	extErrors "github.com/pkg/errors"
	"github.com/streadway/amqp"
)

var _ event.Producer = &AMQPBroker{}

const membershipExchange string = "membership_events"

// AMQPBroker publishes membership events via RabbitMQ
type AMQPBroker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewAMQPBroker returns a membership event producer over RabbitMQ
func NewAMQPBroker(amqpURI string) (*AMQPBroker, error) {
	amqpConn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Message Broker")
	}
	amqpChan, err := amqpConn.Channel()
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot create broker channel")
	}
	broker := &AMQPBroker{
		connection: amqpConn,
		channel:    amqpChan,
	}
	if err := broker.setupMembershipExchange(); err != nil {
		return nil, extErrors.Wrap(err, "Cannot declare exchange for membership events")
	}

	return broker, nil
}

func (a *AMQPBroker) setupMembershipExchange() error {
	return a.channel.ExchangeDeclare(
		membershipExchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
}

// PublishMembershipEvent sends the event to the membership exchange,
// routed by the event type
func (a *AMQPBroker) PublishMembershipEvent(ev event.MembershipEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode membership event")
	}
	return a.channel.Publish(
		membershipExchange,
		string(ev.Type), // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close will close the channel and the connection
func (a *AMQPBroker) Close() {
	a.channel.Close()
	a.connection.Close()
}
