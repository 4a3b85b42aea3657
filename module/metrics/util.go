package metrics

import (
	"reflect"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
)

// registerAllFields registers every field of the collector struct, all of
// which must implement prometheus.Collector.
func registerAllFields(collector interface{}, registerer prometheus.Registerer) {
	t := reflect.TypeOf(collector)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	v := reflect.ValueOf(collector)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		fieldVal := v.Field(i)
		val := getUnexportedField(fieldVal)
		registerer.MustRegister(val.(prometheus.Collector))
	}
}

func getUnexportedField(field reflect.Value) interface{} {
	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem().Interface()
}
