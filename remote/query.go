package remote

import "reflect"

// Operator 过滤操作符
type Operator string

const (
	OpEqual     Operator = "=="
	OpNotEqual  Operator = "!="
	OpGreater   Operator = ">"
	OpGreaterEq Operator = ">="
	OpLess      Operator = "<"
	OpLessEq    Operator = "<="
)

// Direction 排序方向
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Filter 单个过滤条件
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Order 单个排序条件
type Order struct {
	Field     string
	Direction Direction
}

// Query 查询描述符：对一个集合的过滤加排序视图的声明式描述。
// 纯值对象，构造永远不会失败，非法字段名只在执行时暴露。
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
}

// NewQuery 创建针对指定集合的查询
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where 追加过滤条件，返回新的查询值
func (q Query) Where(field string, op Operator, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy 追加排序条件，返回新的查询值
func (q Query) OrderBy(field string, dir Direction) Query {
	orders := make([]Order, len(q.Orders), len(q.Orders)+1)
	copy(orders, q.Orders)
	q.Orders = append(orders, Order{Field: field, Direction: dir})
	return q
}

// Equal 结构化相等：从同样的输入重新推导出的查询不算变化
func (q Query) Equal(other Query) bool {
	return reflect.DeepEqual(q, other)
}

// ByUser 常用的按用户过滤条件
func ByUser(userID string) Filter {
	return Filter{Field: "userId", Op: OpEqual, Value: userID}
}
