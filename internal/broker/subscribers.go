package broker

import (
	"container/list"
)

// subscriberSet keeps subscribers in insertion order with O(1) removal by
// handle
type subscriberSet struct {
	order *list.List
	index map[Subscriber]*list.Element
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{
		order: list.New(),
		index: make(map[Subscriber]*list.Element),
	}
}

// add appends s unless already present
func (s *subscriberSet) add(sub Subscriber) bool {
	if _, ok := s.index[sub]; ok {
		return false
	}
	s.index[sub] = s.order.PushBack(sub)
	return true
}

// remove drops s; removing an absent subscriber is a no-op
func (s *subscriberSet) remove(sub Subscriber) bool {
	el, ok := s.index[sub]
	if !ok {
		return false
	}
	s.order.Remove(el)
	delete(s.index, sub)
	return true
}

func (s *subscriberSet) has(sub Subscriber) bool {
	_, ok := s.index[sub]
	return ok
}

func (s *subscriberSet) len() int {
	return len(s.index)
}

// snapshot returns the subscribers in insertion order
func (s *subscriberSet) snapshot() []Subscriber {
	out := make([]Subscriber, 0, len(s.index))
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Subscriber))
	}
	return out
}
