// Package eventbus dispatches domain events to subscribers whose
// function signature matches the published arguments.
package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(args ...any)
	// PublishE also collects errors returned by handlers.
	PublishE(args ...any) error
	Subscribe(handler any)
	Unsubscribe(handler any)
	SubscribersCount() int
}

var (
	ErrNoSubscribers        = errors.New("eventbus: no matching subscribers")
	ErrInvalidHandlerReturn = errors.New("eventbus: invalid handler return signature")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type publisher struct {
	log *logrus.Logger

	mu       sync.RWMutex
	handlers []reflect.Value
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisher{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			switch paramType.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice:
				continue
			}
			return false
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func values(handler reflect.Value, args []any) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(handler.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func (p *publisher) matching(args []any) []reflect.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []reflect.Value
	for _, h := range p.handlers {
		if MatchSignature(h.Interface(), args) {
			out = append(out, h)
		}
	}
	return out
}

func (p *publisher) call(h reflect.Value, args []any) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("eventbus: handler %s panicked with args %v: %v", h.Type().String(), args, r)
		}
	}()
	return h.Call(values(h, args)), nil
}

// Publish calls every matching handler synchronously, in subscription order.
// A panicking handler is logged and does not stop the others.
func (p *publisher) Publish(args ...any) {
	handled := false
	for _, h := range p.matching(args) {
		if _, err := p.call(h, args); err != nil {
			if p.log != nil {
				p.log.Error(err.Error())
			}
			continue
		}
		handled = true
	}
	if !handled && p.log != nil {
		p.log.Warnf("eventbus.Publish: no matching subscribers for event with args: %v", args)
	}
}

func (p *publisher) PublishE(args ...any) error {
	handlers := p.matching(args)
	if len(handlers) == 0 {
		return ErrNoSubscribers
	}
	var errs []error
	for _, h := range handlers {
		out, err := p.call(h, args)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch {
		case len(out) == 0:
		case len(out) == 1 && out[0].Type() == errorType:
			if !out[0].IsNil() {
				errs = append(errs, out[0].Interface().(error))
			}
		default:
			errs = append(errs, fmt.Errorf("%w: handler %s", ErrInvalidHandlerReturn, h.Type().String()))
		}
	}
	return errors.Join(errs...)
}

func (p *publisher) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, v)
}

// Unsubscribe removes a handler previously passed to Subscribe.
// Function values compare by code pointer, so closures sharing a body are indistinguishable.
func (p *publisher) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler)
	if target.Kind() != reflect.Func {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handlers {
		if h.Pointer() == target.Pointer() {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			return
		}
	}
}

func (p *publisher) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}
