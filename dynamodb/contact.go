package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"agenda/contact"
	"agenda/errs"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	attrID       = "id"
	attrAreaCode = "ddd"
	attrVersion  = "version"
	attrOwner    = "owner"

	areaCodeIndex = "ddd-index"

	conditionalCheckFailed = "ConditionalCheckFailed"
)

// ContactRepository stores contacts in a single table keyed by id. Every
// contact owns two guard items, one keyed by its email and one by its phone
// within the area code. Guards are written in the same transaction as the
// contact with an attribute_not_exists condition, which keeps both unique.
// Guards carry no ddd attribute and so stay out of the area code index.
type ContactRepository struct {
	client API
	table  string
	logger *zap.SugaredLogger
}

type contactItem struct {
	ID       string `dynamodbav:"id"`
	Name     string `dynamodbav:"name"`
	Phone    string `dynamodbav:"phone"`
	Email    string `dynamodbav:"email"`
	AreaCode int    `dynamodbav:"ddd"`
	Version  int    `dynamodbav:"version"`
}

type guardItem struct {
	ID    string `dynamodbav:"id"`
	Owner string `dynamodbav:"owner"`
}

func NewContactRepository(client API, table string, logger *zap.SugaredLogger) *ContactRepository {
	return &ContactRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

func (r *ContactRepository) Add(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	const failure = "failed to add contact, check the data and try again"

	if err := validateTable(r.table); err != nil {
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, failure)
	}

	exists, err := r.ExistsByEmailOrPhone(ctx, c.Email, c.Phone, c.AreaCode, nil)
	if err != nil {
		return contact.Contact{}, err
	}
	if exists {
		r.logger.Warnw("duplicate contact rejected", "operation", "add", "ddd", c.AreaCode)
		return contact.Contact{}, contact.ErrDuplicateContact
	}

	owner := c.ID.String()
	puts := make([]types.TransactWriteItem, 0, 3)
	for _, item := range []interface{}{
		toContactItem(c),
		guardItem{ID: emailGuard(c.Email), Owner: owner},
		guardItem{ID: phoneGuard(c.Phone, c.AreaCode), Owner: owner},
	} {
		put, err := r.putIfAbsent(item)
		if err != nil {
			return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, failure)
		}
		puts = append(puts, types.TransactWriteItem{Put: put})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: puts})
	if err != nil {
		if len(failedConditions(err)) > 0 {
			r.logger.Warnw("duplicate contact rejected by guard", "operation", "add", "ddd", c.AreaCode)
			return contact.Contact{}, contact.ErrDuplicateContact
		}
		r.logger.Errorw("failed to add contact", "operation", "add", "id", c.ID, "error", err)
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: put contact: %w", err), failure)
	}

	return c, nil
}

// Update writes c only if the stored version still matches c.Version. Guards
// follow the email and phone when they change.
func (r *ContactRepository) Update(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	const failure = "failed to update contact, check the data and try again"

	stored, err := r.get(ctx, c.ID)
	if err != nil {
		return contact.Contact{}, err
	}
	if stored == nil || stored.Version != c.Version {
		r.logger.Warnw("stale contact version", "operation", "update", "id", c.ID, "version", c.Version)
		return contact.Contact{}, contact.ErrConcurrentUpdate
	}

	exists, err := r.ExistsByEmailOrPhone(ctx, c.Email, c.Phone, c.AreaCode, &c.ID)
	if err != nil {
		return contact.Contact{}, err
	}
	if exists {
		r.logger.Warnw("duplicate contact rejected", "operation", "update", "id", c.ID)
		return contact.Contact{}, contact.ErrDuplicateOtherContact
	}

	update, err := r.updateIfVersion(c)
	if err != nil {
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, failure)
	}
	items := []types.TransactWriteItem{{Update: update}}

	owner := c.ID.String()
	moves := []struct{ from, to string }{
		{emailGuard(stored.Email), emailGuard(c.Email)},
		{phoneGuard(stored.Phone, stored.AreaCode), phoneGuard(c.Phone, c.AreaCode)},
	}
	for _, m := range moves {
		if m.from == m.to {
			continue
		}
		put, err := r.putIfAbsent(guardItem{ID: m.to, Owner: owner})
		if err != nil {
			return contact.Contact{}, errs.Wrap(errs.EINTERNAL, err, failure)
		}
		items = append(items,
			types.TransactWriteItem{Delete: r.delete(m.from)},
			types.TransactWriteItem{Put: put},
		)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		failed := failedConditions(err)
		switch {
		case len(failed) > 0 && failed[0] == 0:
			r.logger.Warnw("stale contact version", "operation", "update", "id", c.ID, "version", c.Version)
			return contact.Contact{}, contact.ErrConcurrentUpdate
		case len(failed) > 0:
			r.logger.Warnw("duplicate contact rejected by guard", "operation", "update", "id", c.ID)
			return contact.Contact{}, contact.ErrDuplicateOtherContact
		}
		r.logger.Errorw("failed to update contact", "operation", "update", "id", c.ID, "error", err)
		return contact.Contact{}, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: update contact: %w", err), failure)
	}

	c.Version++
	return c, nil
}

// Remove deletes the contact and its guards. It reports false when there is
// nothing to delete.
func (r *ContactRepository) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	stored, err := r.get(ctx, id)
	if err != nil {
		return false, err
	}
	if stored == nil {
		r.logger.Warnw("contact to remove not found", "operation", "remove", "id", id)
		return false, nil
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(attrID))).
		Build()
	if err != nil {
		return false, errs.Wrap(errs.EINTERNAL, err, "failed to remove contact, try again")
	}
	del := r.delete(stored.ID)
	del.ConditionExpression = cond.Condition()
	del.ExpressionAttributeNames = cond.Names()

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: del},
			{Delete: r.delete(emailGuard(stored.Email))},
			{Delete: r.delete(phoneGuard(stored.Phone, stored.AreaCode))},
		},
	})
	if err != nil {
		if len(failedConditions(err)) > 0 {
			return false, nil
		}
		r.logger.Errorw("failed to remove contact", "operation", "remove", "id", id, "error", err)
		return false, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: delete contact: %w", err), "failed to remove contact, try again")
	}

	return true, nil
}

func (r *ContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*contact.Contact, error) {
	item, err := r.get(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}

	c, err := toDomainContact(*item)
	if err != nil {
		return nil, errs.Wrap(errs.EINTERNAL, err, "failed to find contact, try again")
	}
	return &c, nil
}

func (r *ContactRepository) FindByAreaCode(ctx context.Context, areaCode int) ([]contact.Contact, error) {
	const failure = "failed to list contacts, try again"

	if err := validateTable(r.table); err != nil {
		return nil, errs.Wrap(errs.EINTERNAL, err, failure)
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(attrAreaCode).Equal(expression.Value(areaCode))).
		Build()
	if err != nil {
		return nil, errs.Wrap(errs.EINTERNAL, err, failure)
	}

	contacts := make([]contact.Contact, 0)
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(areaCodeIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			r.logger.Errorw("failed to list contacts", "operation", "find_by_area_code", "ddd", areaCode, "error", err)
			return nil, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: query contacts: %w", err), failure)
		}

		var items []contactItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: unmarshal contacts: %w", err), failure)
		}
		for _, item := range items {
			c, err := toDomainContact(item)
			if err != nil {
				return nil, errs.Wrap(errs.EINTERNAL, err, failure)
			}
			contacts = append(contacts, c)
		}
	}

	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Name < contacts[j].Name })
	return contacts, nil
}

// ExistsByEmailOrPhone looks up the guards of email and of phone within
// areaCode. A guard owned by excludeID does not count.
func (r *ContactRepository) ExistsByEmailOrPhone(
	ctx context.Context,
	email, phone string,
	areaCode int,
	excludeID *uuid.UUID,
) (bool, error) {
	for _, key := range []string{emailGuard(email), phoneGuard(phone, areaCode)} {
		owner, err := r.guardOwner(ctx, key)
		if err != nil {
			r.logger.Errorw("failed to check duplicate contact", "operation", "exists_by_email_or_phone", "ddd", areaCode, "error", err)
			return false, errs.Wrap(errs.EINTERNAL, err, "failed to validate contact, try again")
		}
		if owner == "" {
			continue
		}
		if excludeID == nil || owner != excludeID.String() {
			return true, nil
		}
	}

	return false, nil
}

func (r *ContactRepository) get(ctx context.Context, id uuid.UUID) (*contactItem, error) {
	out, err := r.getItem(ctx, id.String())
	if err != nil {
		r.logger.Errorw("failed to find contact", "operation", "find_by_id", "id", id, "error", err)
		return nil, errs.Wrap(errs.EINTERNAL, err, "failed to find contact, try again")
	}
	if len(out) == 0 {
		return nil, nil
	}

	var item contactItem
	if err := attributevalue.UnmarshalMap(out, &item); err != nil {
		return nil, errs.Wrap(errs.EINTERNAL, fmt.Errorf("dynamodb: unmarshal contact: %w", err), "failed to find contact, try again")
	}
	return &item, nil
}

func (r *ContactRepository) guardOwner(ctx context.Context, key string) (string, error) {
	out, err := r.getItem(ctx, key)
	if err != nil || len(out) == 0 {
		return "", err
	}

	var guard guardItem
	if err := attributevalue.UnmarshalMap(out, &guard); err != nil {
		return "", fmt.Errorf("dynamodb: unmarshal guard: %w", err)
	}
	return guard.Owner, nil
}

func (r *ContactRepository) getItem(ctx context.Context, key string) (map[string]types.AttributeValue, error) {
	if err := validateTable(r.table); err != nil {
		return nil, err
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get item: %w", err)
	}
	return out.Item, nil
}

func (r *ContactRepository) putIfAbsent(item interface{}) (*types.Put, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: marshal item: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrID))).
		Build()
	if err != nil {
		return nil, err
	}

	return &types.Put{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	}, nil
}

func (r *ContactRepository) updateIfVersion(c contact.Contact) (*types.Update, error) {
	update := expression.
		Set(expression.Name("name"), expression.Value(c.Name)).
		Set(expression.Name("phone"), expression.Value(c.Phone)).
		Set(expression.Name("email"), expression.Value(c.Email)).
		Set(expression.Name(attrAreaCode), expression.Value(c.AreaCode)).
		Set(expression.Name(attrVersion), expression.Name(attrVersion).Plus(expression.Value(1)))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.Name(attrVersion).Equal(expression.Value(c.Version))).
		Build()
	if err != nil {
		return nil, err
	}

	return &types.Update{
		TableName:                 aws.String(r.table),
		Key:                       itemKey(c.ID.String()),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func (r *ContactRepository) delete(key string) *types.Delete {
	return &types.Delete{
		TableName: aws.String(r.table),
		Key:       itemKey(key),
	}
}

// failedConditions returns the positions of the transaction items whose
// condition did not hold.
func failedConditions(err error) []int {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return nil
	}

	var failed []int
	for i, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == conditionalCheckFailed {
			failed = append(failed, i)
		}
	}
	return failed
}

func itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

func emailGuard(email string) string {
	return "email#" + contact.NormalizeEmail(email)
}

func phoneGuard(phone string, areaCode int) string {
	return "phone#" + strconv.Itoa(areaCode) + "#" + phone
}

func toContactItem(c contact.Contact) contactItem {
	return contactItem{
		ID:       c.ID.String(),
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		AreaCode: c.AreaCode,
		Version:  c.Version,
	}
}

func toDomainContact(item contactItem) (contact.Contact, error) {
	id, err := uuid.Parse(item.ID)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("dynamodb: invalid contact id %q: %w", item.ID, err)
	}

	return contact.Contact{
		ID:       id,
		Name:     item.Name,
		Phone:    item.Phone,
		Email:    item.Email,
		AreaCode: item.AreaCode,
		Version:  item.Version,
	}, nil
}
