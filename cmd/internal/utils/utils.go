package utils

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"time"
)

var (
	nameAdjectives = []string{
		"Happy", "Swift", "Quiet", "Brave", "Clever", "Gentle", "Lucky", "Mellow",
		"Bright", "Calm", "Eager", "Witty", "Jolly", "Sunny", "Cosmic", "Silent",
	}
	nameNouns = []string{
		"Panda", "Falcon", "Otter", "Tiger", "Fox", "Koala", "Dolphin", "Raven",
		"Badger", "Lynx", "Comet", "Maple", "Willow", "Pebble", "Nebula", "Heron",
	}
)

func FormatEpoch(millis int64) string {
	return time.UnixMilli(millis).
		UTC().
		Format(time.RFC3339)
}

func NowUTC() int64 {
	return time.Now().
		UTC().
		UnixMilli()
}

// GenerateDisplayName returns a random "<Adjective><Noun><0-999>" label.
// It carries no identity, two calls for the same user will differ.
func GenerateDisplayName() string {
	adj := nameAdjectives[rand.IntN(len(nameAdjectives))]
	noun := nameNouns[rand.IntN(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, rand.IntN(1000))
}

func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(sanitizeString(field.String()))

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					field.Index(j).SetString(sanitizeString(field.Index(j).String()))
				}
			}
		}
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(s)
}
