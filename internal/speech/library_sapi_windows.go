package speech

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const (
	sapiFlagsAsync      = 1
	sapiFlagsPurge      = 2
	sapiDefaultWPM      = 200
	sapiPollMillis      = 100
	sapiMinRate         = -10
	sapiMaxRate         = 10
	sapiRateTriplesEach = 10
)

var errLibraryClosed = errors.New("speech library closed")

// sapiLibrary drives SAPI.SpVoice. COM objects are apartment threaded, so
// every call runs on one goroutine locked to its OS thread.
type sapiLibrary struct {
	calls   chan func(*ole.IDispatch)
	stopReq chan struct{}
	quit    chan struct{}
	once    sync.Once
}

func openLibrary() (Library, error) {
	l := &sapiLibrary{
		calls:   make(chan func(*ole.IDispatch)),
		stopReq: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	ready := make(chan error, 1)
	go l.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return l, nil
}

func (l *sapiLibrary) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		ready <- fmt.Errorf("CoInitializeEx: %w", err)
		return
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("SAPI.SpVoice")
	if err != nil {
		ready <- fmt.Errorf("create SAPI.SpVoice: %w", err)
		return
	}
	defer unknown.Release()

	voice, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		ready <- fmt.Errorf("query SAPI.SpVoice: %w", err)
		return
	}
	defer voice.Release()

	ready <- nil
	for {
		select {
		case fn := <-l.calls:
			fn(voice)
		case <-l.quit:
			return
		}
	}
}

// do runs fn on the COM thread and returns its error.
func (l *sapiLibrary) do(fn func(*ole.IDispatch) error) error {
	errc := make(chan error, 1)
	select {
	case l.calls <- func(v *ole.IDispatch) { errc <- fn(v) }:
	case <-l.quit:
		return errLibraryClosed
	}
	return <-errc
}

// eachToken calls fn for every installed voice token until fn returns false.
func eachToken(v *ole.IDispatch, fn func(token *ole.IDispatch) (bool, error)) error {
	tokens, err := oleutil.CallMethod(v, "GetVoices")
	if err != nil {
		return err
	}
	defer tokens.Clear()
	list := tokens.ToIDispatch()

	count, err := oleutil.GetProperty(list, "Count")
	if err != nil {
		return err
	}
	defer count.Clear()

	for i := 0; i < int(count.Val); i++ {
		item, err := oleutil.CallMethod(list, "Item", i)
		if err != nil {
			return err
		}
		more, err := fn(item.ToIDispatch())
		item.Clear()
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func stringProperty(d *ole.IDispatch, name string) string {
	v, err := oleutil.GetProperty(d, name)
	if err != nil {
		return ""
	}
	defer v.Clear()
	return v.ToString()
}

func stringMethod(d *ole.IDispatch, name string, args ...any) string {
	v, err := oleutil.CallMethod(d, name, args...)
	if err != nil {
		return ""
	}
	defer v.Clear()
	return v.ToString()
}

func (l *sapiLibrary) Voices() ([]LibraryVoice, error) {
	var voices []LibraryVoice
	err := l.do(func(v *ole.IDispatch) error {
		return eachToken(v, func(token *ole.IDispatch) (bool, error) {
			lv := LibraryVoice{
				ID:   stringProperty(token, "Id"),
				Name: stringMethod(token, "GetDescription"),
			}
			if lang := stringMethod(token, "GetAttribute", "Language"); lang != "" {
				lv.Languages = [][]byte{[]byte(lang)}
			}
			voices = append(voices, lv)
			return true, nil
		})
	})
	return voices, err
}

// Rate reports the speaking rate in words per minute.
func (l *sapiLibrary) Rate() (int, error) {
	var wpm int
	err := l.do(func(v *ole.IDispatch) error {
		r, err := oleutil.GetProperty(v, "Rate")
		if err != nil {
			return err
		}
		defer r.Clear()
		wpm = sapiToWPM(int(r.Val))
		return nil
	})
	return wpm, err
}

// SetRate sets the speaking rate in words per minute.
func (l *sapiLibrary) SetRate(wpm int) error {
	return l.do(func(v *ole.IDispatch) error {
		_, err := oleutil.PutProperty(v, "Rate", wpmToSAPI(wpm))
		return err
	})
}

func (l *sapiLibrary) Voice() (string, error) {
	var id string
	err := l.do(func(v *ole.IDispatch) error {
		token, err := oleutil.GetProperty(v, "Voice")
		if err != nil {
			return err
		}
		defer token.Clear()
		id = stringProperty(token.ToIDispatch(), "Id")
		return nil
	})
	return id, err
}

func (l *sapiLibrary) SetVoice(id string) error {
	return l.do(func(v *ole.IDispatch) error {
		found := false
		err := eachToken(v, func(token *ole.IDispatch) (bool, error) {
			if stringProperty(token, "Id") != id {
				return true, nil
			}
			found = true
			_, err := oleutil.PutPropertyRef(v, "Voice", token)
			return false, err
		})
		if err == nil && !found {
			err = fmt.Errorf("voice %q is not installed", id)
		}
		return err
	})
}

// Speak queues text asynchronously, purging anything still queued. A stop
// request left over from an earlier handle is dropped.
func (l *sapiLibrary) Speak(text string) error {
	select {
	case <-l.stopReq:
	default:
	}
	return l.do(func(v *ole.IDispatch) error {
		_, err := oleutil.CallMethod(v, "Speak", text, sapiFlagsAsync|sapiFlagsPurge)
		return err
	})
}

// Wait polls for completion so a Stop request can purge the queue.
func (l *sapiLibrary) Wait() error {
	return l.do(func(v *ole.IDispatch) error {
		for {
			select {
			case <-l.stopReq:
				_, err := oleutil.CallMethod(v, "Speak", "", sapiFlagsAsync|sapiFlagsPurge)
				return err
			default:
			}
			done, err := oleutil.CallMethod(v, "WaitUntilDone", sapiPollMillis)
			if err != nil {
				return err
			}
			finished := done.Val != 0
			done.Clear()
			if finished {
				select {
				case <-l.stopReq:
				default:
				}
				return nil
			}
		}
	})
}

func (l *sapiLibrary) Stop() error {
	select {
	case l.stopReq <- struct{}{}:
	default:
	}
	return nil
}

func (l *sapiLibrary) Close() error {
	l.once.Do(func() { close(l.quit) })
	return nil
}

// sapiToWPM converts a SAPI rate offset to words per minute. Each ten
// steps triple the rate.
func sapiToWPM(rate int) int {
	return int(math.Round(sapiDefaultWPM * math.Pow(3, float64(rate)/sapiRateTriplesEach)))
}

func wpmToSAPI(wpm int) int {
	if wpm <= 0 {
		return sapiMinRate
	}
	r := int(math.Round(sapiRateTriplesEach * math.Log(float64(wpm)/sapiDefaultWPM) / math.Log(3)))
	return min(sapiMaxRate, max(sapiMinRate, r))
}
