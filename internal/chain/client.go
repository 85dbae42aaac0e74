package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/block-vision/sui-go-sdk/models"
	"github.com/block-vision/sui-go-sdk/sui"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
)

const (
	ownedPageLimit   = 50
	waitForExecution = "WaitForLocalExecution"
)

// RPCError - error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (that *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", that.Code, that.Message)
}

// Client - Sui full node access over the JSON-RPC API.
type Client struct {
	logger  *slog.Logger
	api     sui.ISuiAPI
	timeout time.Duration
}

func NewClient(logger *slog.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger.With("component", "chain_client"),
		api:     sui.NewSuiClient(url),
		timeout: timeout,
	}
}

type ObjectContent struct {
	DataType string          `json:"dataType"`
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Digest   string         `json:"digest"`
	Type     string         `json:"type"`
	Content  *ObjectContent `json:"content"`
}

type objectResponse struct {
	Data *ObjectData `json:"data"`
}

type ownedObjectsPage struct {
	Data        []objectResponse `json:"data"`
	NextCursor  *string          `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

// MoveCall - a call of a contract entry function.
type MoveCall struct {
	Package   string
	Module    string
	Function  string
	Arguments []any
	GasBudget uint64
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type TransactionEffects struct {
	Status ExecutionStatus `json:"status"`
}

type ObjectChange struct {
	Type       string `json:"type"`
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

type TransactionResponse struct {
	Digest        string              `json:"digest"`
	Effects       *TransactionEffects `json:"effects"`
	ObjectChanges []ObjectChange      `json:"objectChanges"`
}

// Succeeded - true when the effects report a successful execution.
func (that *TransactionResponse) Succeeded() bool {
	return that.Effects != nil && that.Effects.Status.Status == "success"
}

// CreatedObject - id of the first object of the given type created by the transaction.
func (that *TransactionResponse) CreatedObject(objectType string) (string, bool) {
	for _, change := range that.ObjectChanges {
		if change.Type == "created" && change.ObjectType == objectType {
			return change.ObjectID, true
		}
	}

	return "", false
}

// GetObject - object with its content; a deleted or missing object is ErrNotFound.
func (that *Client) GetObject(ctx context.Context, id string) (*ObjectData, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	raw, err := that.api.SuiGetObject(ctx, models.SuiGetObjectRequest{
		ObjectId: id,
		Options:  models.SuiObjectDataOptions{ShowContent: true, ShowType: true},
	})
	if err != nil {
		return nil, that.classify("sui_getObject", err)
	}

	var response objectResponse
	if err = reshape(raw, &response); err != nil {
		return nil, err
	}

	if response.Data == nil {
		return nil, fmt.Errorf("object %s: %w", id, apperror.ErrNotFound)
	}

	return response.Data, nil
}

// GetOwnedObjects - every object of a struct type owned by an address.
func (that *Client) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ObjectData, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	objects := make([]ObjectData, 0)

	var cursor *string
	for {
		raw, err := that.api.SuiXGetOwnedObjects(ctx, models.SuiXGetOwnedObjectsRequest{
			Address: owner,
			Query: models.SuiObjectResponseQuery{
				Filter:  map[string]string{"StructType": structType},
				Options: models.SuiObjectDataOptions{ShowContent: true, ShowType: true},
			},
			Cursor: cursor,
			Limit:  ownedPageLimit,
		})
		if err != nil {
			return nil, that.classify("suix_getOwnedObjects", err)
		}

		var page ownedObjectsPage
		if err = reshape(raw, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Data {
			if item.Data != nil {
				objects = append(objects, *item.Data)
			}
		}

		if !page.HasNextPage || page.NextCursor == nil || *page.NextCursor == "" {
			return objects, nil
		}

		cursor = page.NextCursor
	}
}

// Execute - builds the call for the signer's account, signs it and waits for local execution.
func (that *Client) Execute(ctx context.Context, signer *Signer, call MoveCall) (*TransactionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	arguments := call.Arguments
	if arguments == nil {
		arguments = []any{}
	}

	meta, err := that.api.MoveCall(ctx, models.MoveCallRequest{
		Signer:          signer.Address(),
		PackageObjectId: call.Package,
		Module:          call.Module,
		Function:        call.Function,
		TypeArguments:   []interface{}{},
		Arguments:       arguments,
		GasBudget:       fmt.Sprintf("%d", call.GasBudget),
	})
	if err != nil {
		return nil, that.classify("unsafe_moveCall", err)
	}

	if meta.TxBytes == "" {
		return nil, fmt.Errorf("%w: empty transaction bytes", apperror.ErrTransportFailure)
	}

	raw, err := that.api.SignAndExecuteTransactionBlock(ctx, models.SignAndExecuteTransactionBlockRequest{
		TxnMetaData: meta,
		PriKey:      signer.key,
		Options:     models.SuiTransactionBlockOptions{ShowEffects: true, ShowObjectChanges: true},
		RequestType: waitForExecution,
	})
	if err != nil {
		return nil, that.classify("sui_executeTransactionBlock", err)
	}

	var response TransactionResponse
	if err = reshape(raw, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// classify - the node's own error object becomes *RPCError, anything else is a transport failure.
// The SDK reports the node's error object as the error text.
func (that *Client) classify(method string, err error) error {
	var rpcErr RPCError
	if text := strings.TrimSpace(err.Error()); strings.HasPrefix(text, "{") {
		if json.Unmarshal([]byte(text), &rpcErr) == nil && (rpcErr.Code != 0 || rpcErr.Message != "") {
			that.logger.Debug("node returned an error", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
			return &rpcErr
		}
	}

	return fmt.Errorf("%w: %s: %w", apperror.ErrTransportFailure, method, err)
}

// reshape - re-reads an SDK model into the narrower local type through its JSON form.
func reshape(from, to any) error {
	payload, err := json.Marshal(from)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal result: %w", apperror.ErrTransportFailure, err)
	}

	if err = json.Unmarshal(payload, to); err != nil {
		return fmt.Errorf("%w: failed to unmarshal result: %w", apperror.ErrTransportFailure, err)
	}

	return nil
}

// IsRPCError - reports whether the node itself refused the request.
func IsRPCError(err error) bool {
	var rpcErr *RPCError

	return errors.As(err, &rpcErr)
}
