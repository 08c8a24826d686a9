// Package notify доставляет клиентам сообщения о появлении робота.
package notify

import (
	"fmt"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

const bodyTemplate = "Добрый день!\n\n" +
	"Недавно вы интересовались нашим роботом модели %s, версии %s.\n" +
	"Этот робот теперь в наличии. Если вам подходит этот вариант - пожалуйста, свяжитесь с нами."

// Message — текст уведомления.
type Message struct {
	Subject string
	Body    string
}

// ComposeArrival собирает письмо о поступлении робота.
func ComposeArrival(robot domain.Robot) Message {
	return Message{
		Subject: fmt.Sprintf("Робот %s %s теперь в наличии", robot.Model, robot.Version),
		Body:    fmt.Sprintf(bodyTemplate, robot.Model, robot.Version),
	}
}
