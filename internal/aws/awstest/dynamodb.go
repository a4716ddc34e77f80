// Package awstest provides in-memory fakes of the AWS client interfaces for
// tests. The DynamoDB fake understands the small expression subset the
// stores use: "SET a = :x, #b = :y" updates and conditions made of
// attribute_exists, attribute_not_exists and equality joined by AND.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

type index struct {
	hash, rng string
}

type table struct {
	key     string
	items   map[string]item
	indexes map[string]index
}

// DynamoDB is a multi-table in-memory DynamoDB.
type DynamoDB struct {
	mu     sync.Mutex
	tables map[string]*table

	// Err, when set, is returned by every call.
	Err error
	// Calls counts invocations per operation name.
	Calls map[string]int
}

// NewDynamoDB returns a fake with no tables.
func NewDynamoDB() *DynamoDB {
	return &DynamoDB{tables: map[string]*table{}, Calls: map[string]int{}}
}

// AddTable registers a table keyed by a single string attribute.
func (d *DynamoDB) AddTable(name, keyAttr string) *DynamoDB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &table{key: keyAttr, items: map[string]item{}, indexes: map[string]index{}}
	return d
}

// AddIndex registers a global secondary index on table.
func (d *DynamoDB) AddIndex(tableName, indexName, hashAttr, rangeAttr string) *DynamoDB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[tableName].indexes[indexName] = index{hash: hashAttr, rng: rangeAttr}
	return d
}

// Item returns a copy of a stored item, or nil.
func (d *DynamoDB) Item(tableName, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[tableName]
	if !ok {
		return nil
	}
	it, ok := t.items[key]
	if !ok {
		return nil
	}
	return clone(it)
}

// Len is the number of items in a table.
func (d *DynamoDB) Len(tableName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[tableName].items)
}

func (d *DynamoDB) table(name *string) (*table, error) {
	if name == nil {
		return nil, errors.New("awstest: missing table name")
	}
	t, ok := d.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: name}
	}
	return t, nil
}

func (d *DynamoDB) begin(op string) error {
	d.Calls[op]++
	return d.Err
}

func (t *table) keyOf(it item) (string, error) {
	s, ok := it[t.key].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("awstest: item has no string key %q", t.key)
	}
	return s.Value, nil
}

func (d *DynamoDB) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("PutItem"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	t.items[k] = clone(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *DynamoDB) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("GetItem"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := t.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

func (d *DynamoDB) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	existing := t.items[k]
	ok, err := evalCondition(in.ConditionExpression, existing, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	next := clone(existing)
	if next == nil {
		next = clone(in.Key)
	}
	if in.UpdateExpression != nil {
		if err := applySet(*in.UpdateExpression, next, in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	t.items[k] = next
	return &dyn.UpdateItemOutput{Attributes: clone(next)}, nil
}

func (d *DynamoDB) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("DeleteItem"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	delete(t.items, k)
	return &dyn.DeleteItemOutput{}, nil
}

// Query supports "<hash> = :v" key conditions on a table or index. Index
// results are ordered by the range attribute.
func (d *DynamoDB) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("Query"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.KeyConditionExpression == nil {
		return nil, errors.New("awstest: missing key condition")
	}
	attr, placeholder, ok := strings.Cut(*in.KeyConditionExpression, " = ")
	if !ok {
		return nil, fmt.Errorf("awstest: unsupported key condition %q", *in.KeyConditionExpression)
	}
	attr = resolveName(strings.TrimSpace(attr), in.ExpressionAttributeNames)
	want := in.ExpressionAttributeValues[strings.TrimSpace(placeholder)]

	rng := ""
	if in.IndexName != nil {
		idx, ok := t.indexes[*in.IndexName]
		if !ok {
			return nil, fmt.Errorf("awstest: unknown index %q", *in.IndexName)
		}
		rng = idx.rng
	}

	var out []item
	for _, it := range t.items {
		if equal(it[attr], want) {
			out = append(out, clone(it))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if rng == "" {
			return less(out[i][t.key], out[j][t.key])
		}
		return less(out[i][rng], out[j][rng])
	})
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

// Scan returns every item of the table in key order.
func (d *DynamoDB) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("Scan"); err != nil {
		return nil, err
	}
	t, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]item, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(t.items[k]))
	}
	return &dyn.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

// TransactWriteItems checks every condition before applying any Put.
func (d *DynamoDB) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("TransactWriteItems"); err != nil {
		return nil, err
	}
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		p := ti.Put
		if p == nil {
			return nil, errors.New("awstest: only Put is supported in transactions")
		}
		t, err := d.table(p.TableName)
		if err != nil {
			return nil, err
		}
		k, err := t.keyOf(p.Item)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(p.ConditionExpression, t.items[k], p.ExpressionAttributeNames, p.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             strPtr("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, ti := range in.TransactItems {
		t, _ := d.table(ti.Put.TableName)
		k, _ := t.keyOf(ti.Put.Item)
		t.items[k] = clone(ti.Put.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// evalCondition supports OR of AND-joined clauses: attribute_exists,
// attribute_not_exists, "a = :v" and "a < :v".
func evalCondition(expr *string, existing item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == nil || *expr == "" {
		return true, nil
	}
	for _, branch := range strings.Split(*expr, " OR ") {
		ok, err := evalAll(branch, existing, names, values)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func evalAll(expr string, existing item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
			if existing != nil && existing[attr] != nil {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
			if existing == nil || existing[attr] == nil {
				return false, nil
			}
		case strings.Contains(clause, " < "):
			lhs, rhs, _ := strings.Cut(clause, " < ")
			bound, ok := values[strings.TrimSpace(rhs)]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %q", rhs)
			}
			cur := existing[resolveName(strings.TrimSpace(lhs), names)]
			if existing == nil || cur == nil || !less(cur, bound) {
				return false, nil
			}
		default:
			lhs, rhs, ok := strings.Cut(clause, " = ")
			if !ok {
				return false, fmt.Errorf("awstest: unsupported condition %q", clause)
			}
			want, ok := values[strings.TrimSpace(rhs)]
			if !ok {
				return false, fmt.Errorf("awstest: missing value %q", rhs)
			}
			if existing == nil || !equal(existing[resolveName(strings.TrimSpace(lhs), names)], want) {
				return false, nil
			}
		}
	}
	return true, nil
}

// applySet handles "SET a = :x, b = :y" and the counter form
// "a = if_not_exists(a, :zero) + :inc".
func applySet(expr string, it item, names map[string]string, values map[string]types.AttributeValue) error {
	body, ok := strings.CutPrefix(strings.TrimSpace(expr), "SET ")
	if !ok {
		return fmt.Errorf("awstest: unsupported update %q", expr)
	}
	for _, assign := range splitAssignments(body) {
		lhs, rhs, ok := strings.Cut(assign, " = ")
		if !ok {
			return fmt.Errorf("awstest: unsupported assignment %q", assign)
		}
		attr := resolveName(strings.TrimSpace(lhs), names)
		rhs = strings.TrimSpace(rhs)
		if strings.HasPrefix(rhs, "if_not_exists(") {
			inner, inc, _ := strings.Cut(rhs, ") + ")
			_, zero, _ := strings.Cut(inner, ", ")
			base := values[strings.TrimSpace(zero)]
			if cur, ok := it[attr]; ok {
				base = cur
			}
			sum, err := addN(base, values[strings.TrimSpace(inc)])
			if err != nil {
				return err
			}
			it[attr] = sum
			continue
		}
		v, ok := values[rhs]
		if !ok {
			return fmt.Errorf("awstest: missing value %q", rhs)
		}
		it[attr] = v
	}
	return nil
}

// splitAssignments splits on commas outside parentheses.
func splitAssignments(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if n, ok := names[name]; ok {
			return n
		}
	}
	return name
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		x, err1 := strconv.ParseFloat(av.Value, 64)
		y, err2 := strconv.ParseFloat(bv.Value, 64)
		return err1 == nil && err2 == nil && x == y
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func less(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return av.Value < bv.Value
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			x, _ := strconv.ParseFloat(av.Value, 64)
			y, _ := strconv.ParseFloat(bv.Value, 64)
			return x < y
		}
	}
	return false
}

func addN(a, b types.AttributeValue) (types.AttributeValue, error) {
	an, ok1 := a.(*types.AttributeValueMemberN)
	bn, ok2 := b.(*types.AttributeValueMemberN)
	if !ok1 || !ok2 {
		return nil, errors.New("awstest: counter operands must be numbers")
	}
	x, err := strconv.ParseInt(an.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseInt(bn.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(x+y, 10)}, nil
}

// clone copies the top level of an item; attribute values are treated as
// immutable.
func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
