package events

import (
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"gopkg.in/yaml.v3"
)

// StepPrinterFunc returns a handler that prints inference events in a human
// readable form to w. With verbose, the metadata of final events is printed
// as YAML.
func StepPrinterFunc(name string, w io.Writer, verbose bool) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		switch p_ := e.(type) {
		case *EventStart:
			if name != "" {
				_, err = fmt.Fprintf(w, "\n%s (%s): \n", name, p_.Metadata().Model)
			}

		case *EventFinal:
			text := p_.Text
			if !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			_, err = fmt.Fprint(w, text)
			if err == nil && verbose {
				var v_ []byte
				v_, err = yaml.Marshal(p_.Metadata())
				if err == nil {
					_, err = fmt.Fprintf(w, "%s\n", v_)
				}
			}

		case *EventError:
			_, err = fmt.Fprintf(w, "\n[error] %s: %s\n", p_.Category, p_.ErrorString)

		case *EventInterrupt:
			_, err = fmt.Fprintf(w, "\n[interrupted]\n")
		}

		return err
	}
}
