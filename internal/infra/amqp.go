// README: AMQP connection and channel setup for the notification exchange.
package infra

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPChannel dials the broker and declares the fanout exchange used for
// fire-and-forget notification events. The caller owns both returned handles.
func NewAMQPChannel(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
