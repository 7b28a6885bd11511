package dynamodb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/getmynews/getmynews/feed"
)

var _ feed.Store = &DynamoDB{}
var _ feed.Updater = &DynamoDB{}

// maxUpdateAttempts bounds the optimistic retries in Update
const maxUpdateAttempts = 10

// ErrUpdateConflict is returned when Update keeps losing the race for a key
var ErrUpdateConflict = errors.New("dynamodb: too many concurrent updates")

// DynamoDB implements the store interface on a single table keyed by "key"
type DynamoDB struct {
	dynDB     *dynamodb.DynamoDB
	tableName string
}

type item struct {
	Key     string `dynamodbav:"key"`
	Value   string `dynamodbav:"value"`
	Version int64  `dynamodbav:"version,omitempty"`
}

//GetNewDynamoDB gets a new dynamodb database or panics
func GetNewDynamoDB(table string) *DynamoDB {
	awsSession := session.Must(session.NewSession())
	dynDB := dynamodb.New(awsSession)

	return &DynamoDB{
		dynDB:     dynDB,
		tableName: table,
	}
}

// Start implements feed.Store. The table is expected to exist already.
func (d *DynamoDB) Start() error {
	return nil
}

func (d *DynamoDB) key(k string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"key": {
			S: aws.String(k),
		},
	}
}

func (d *DynamoDB) getItem(key string) (item, bool, error) {
	o, err := d.dynDB.GetItem(&dynamodb.GetItemInput{
		Key:            d.key(key),
		TableName:      aws.String(d.tableName),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return item{}, false, fmt.Errorf("DynamoDB - failed to get item: %w", err)
	}

	if o.Item == nil {
		return item{}, false, nil
	}

	var i item
	err = dynamodbattribute.UnmarshalMap(o.Item, &i)
	if err != nil {
		return item{}, false, fmt.Errorf("DynamoDB - failed to unmarshal item: %w", err)
	}

	return i, true, nil
}

// Get gets the value at key
func (d *DynamoDB) Get(key string) ([]byte, error) {
	i, found, err := d.getItem(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, feed.ErrNotFound
	}
	return []byte(i.Value), nil
}

// Put stores value at key, replacing whatever was there
func (d *DynamoDB) Put(key string, value []byte) error {
	attributeValues, err := dynamodbattribute.MarshalMap(item{Key: key, Value: string(value)})
	if err != nil {
		return fmt.Errorf("DynamoDB - failed to marshal item: %w", err)
	}

	_, err = d.dynDB.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      attributeValues,
	})
	if err != nil {
		return fmt.Errorf("DynamoDB - failed to put item: %w", err)
	}

	return nil
}

// Delete deletes key
func (d *DynamoDB) Delete(key string) error {
	_, err := d.dynDB.DeleteItem(&dynamodb.DeleteItemInput{
		Key:       d.key(key),
		TableName: aws.String(d.tableName),
	})
	if err != nil {
		return fmt.Errorf("DynamoDB - failed to delete item: %w", err)
	}
	return nil
}

// Update applies fn using a version attribute for optimistic locking. A write that loses the race is
// retried from a fresh read.
func (d *DynamoDB) Update(key string, fn func(current []byte, found bool) ([]byte, error)) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, found, err := d.getItem(key)
		if err != nil {
			return err
		}

		var value []byte
		if found {
			value = []byte(current.Value)
		}

		next, err := fn(value, found)
		if err != nil {
			return err
		}

		err = d.conditionalPut(item{Key: key, Value: string(next), Version: current.Version + 1}, found, current.Version)
		if isConditionFailed(err) {
			continue
		}
		return err
	}

	return ErrUpdateConflict
}

func (d *DynamoDB) conditionalPut(i item, existed bool, version int64) error {
	attributeValues, err := dynamodbattribute.MarshalMap(i)
	if err != nil {
		return fmt.Errorf("DynamoDB - failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      attributeValues,
		ExpressionAttributeNames: map[string]*string{
			"#K": aws.String("key"),
		},
	}

	switch {
	case !existed:
		input.ConditionExpression = aws.String("attribute_not_exists(#K)")
	case version == 0:
		// written by Put, which doesn't track versions
		input.ExpressionAttributeNames["#V"] = aws.String("version")
		input.ConditionExpression = aws.String("attribute_exists(#K) AND attribute_not_exists(#V)")
	default:
		input.ExpressionAttributeNames["#V"] = aws.String("version")
		input.ExpressionAttributeValues = map[string]*dynamodb.AttributeValue{
			":v": {
				N: aws.String(strconv.FormatInt(version, 10)),
			},
		}
		input.ConditionExpression = aws.String("#V = :v")
	}

	_, err = d.dynDB.PutItem(input)
	if err != nil {
		return fmt.Errorf("DynamoDB - failed to update item: %w", err)
	}

	return nil
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

//createDatabase creates a new table for testing
func (d *DynamoDB) createDatabase() error {
	table := &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       aws.String("HASH"),
			},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
		TableName: aws.String(d.tableName),
	}

	_, err := d.dynDB.CreateTable(table)

	if err != nil {
		if !strings.Contains(err.Error(), dynamodb.ErrCodeResourceInUseException) {
			return err
		}
	}

	return nil
}
