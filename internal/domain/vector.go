package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector 语义向量，落库时序列化为 JSON 数组
type Vector []float32

// Value 实现 driver.Valuer
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("cannot scan %T into Vector", value)
	}
}

// Strings 字符串数组字段，落库时序列化为 JSON 数组
type Strings []string

// Value 实现 driver.Valuer
func (s Strings) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner
func (s *Strings) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	default:
		return fmt.Errorf("cannot scan %T into Strings", value)
	}
}

// Contains 判断数组中是否存在与目标完全相等的元素
func (s Strings) Contains(target string) bool {
	for _, item := range s {
		if item == target {
			return true
		}
	}
	return false
}
