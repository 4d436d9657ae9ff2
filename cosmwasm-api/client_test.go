package cosmwasmapi

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/suite"

	"github.com/zorostang/secret-upgradable-nfts/chainio/chaintest"
	"github.com/zorostang/secret-upgradable-nfts/chainio/types"
)

type ExecuteMsg struct {
	SetName *SetName  `json:"set_name,omitempty"`
	Fail    *struct{} `json:"fail,omitempty"`
}

type SetName struct {
	Name string `json:"name"`
}

type ExecuteAnswer struct {
	SetName *Status `json:"set_name,omitempty"`
}

type Status struct {
	Status string `json:"status"`
}

type QueryMsg struct {
	Name   *struct{} `json:"name,omitempty"`
	Broken *struct{} `json:"broken,omitempty"`
	Panic  *struct{} `json:"panic,omitempty"`
}

type NameResponse struct {
	Name string `json:"name"`
}

type named struct {
	name string
}

func (n *named) Execute(_ chaintest.Env, msg []byte) (*chaintest.Response, error) {
	var m ExecuteMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	if m.Fail != nil {
		return nil, errors.New("generic_err: told to fail")
	}
	n.name = m.SetName.Name
	// responses are padded to a block size on chain
	return &chaintest.Response{Data: []byte(`{"set_name":{"status":"success"}}     `)}, nil
}

func (n *named) Query(_ chaintest.Env, msg []byte) ([]byte, error) {
	var m QueryMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	switch {
	case m.Broken != nil:
		return []byte(`{"generic_err":{"msg":"viewing key is wrong"}}`), nil
	case m.Panic != nil:
		return nil, errors.New("contract panicked")
	}
	return json.Marshal(NameResponse{Name: n.name})
}

var namedWasm = []byte("\x00asm named")

type ClientTestSuite struct {
	suite.Suite
	ctx    context.Context
	chain  *chaintest.Chain
	client *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.chain = chaintest.NewChain("secretdev-1", "secret")
	hash := s.chain.RegisterCode(namedWasm, func(chaintest.Env, []byte) (chaintest.Contract, error) {
		return &named{}, nil
	})

	res, err := s.chain.StoreCode(s.ctx, types.StoreCodeOptions{WasmByteCode: namedWasm, Gas: 5_000_000})
	s.Require().NoError(err)
	codeID, err := res.CodeID("code_id")
	s.Require().NoError(err)
	res, err = s.chain.Instantiate(s.ctx, types.InstantiateOptions{CodeID: codeID, CodeHash: hash, InitMsg: []byte(`{}`), Label: "named", Gas: 1_000_000})
	s.Require().NoError(err)
	addr, err := res.MustFindAttribute("message", "contract_address")
	s.Require().NoError(err)

	s.client = NewClient(s.chain, addr, hash, DefaultBroadcastOptions())
}

func TestClient(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) Test_ExecuteAndQuery() {
	answer, res, err := Execute[ExecuteAnswer](s.ctx, s.chain, s.client.Options(), ExecuteMsg{SetName: &SetName{Name: "test_NFT"}})
	s.Require().NoError(err)
	s.Require().NotNil(answer.SetName)
	s.Equal("success", answer.SetName.Status)
	s.Greater(res.GasUsed, int64(0))

	response, err := Query[NameResponse](s.ctx, s.chain, s.client.Address(), s.client.CodeHash(), QueryMsg{Name: &struct{}{}})
	s.Require().NoError(err)
	s.Equal("test_NFT", response.Name)
}

func (s *ClientTestSuite) Test_ExecuteFailed() {
	_, res, err := Execute[ExecuteAnswer](s.ctx, s.chain, s.client.Options(), ExecuteMsg{Fail: &struct{}{}})
	s.ErrorIs(err, types.ErrExecution)

	var txErr *types.TxError
	s.Require().ErrorAs(err, &txErr)
	s.Contains(txErr.Log, "told to fail")
	s.NotNil(res)
}

func (s *ClientTestSuite) Test_ExecuteOutOfGas() {
	opts := s.client.Options().WithGas(1_000)
	_, _, err := Execute[ExecuteAnswer](s.ctx, s.chain, opts, ExecuteMsg{SetName: &SetName{Name: "x"}})

	var txErr *types.TxError
	s.Require().ErrorAs(err, &txErr)
	s.Equal(chaintest.CodeOutOfGas, txErr.Code)
}

func (s *ClientTestSuite) Test_ExecuteRejectsInvalidVariant() {
	_, _, err := Execute[ExecuteAnswer](s.ctx, s.chain, s.client.Options(), ExecuteMsg{})
	s.ErrorIs(err, types.ErrExecution)
	s.ErrorIs(err, ErrNoVariant)

	_, _, err = Execute[ExecuteAnswer](s.ctx, s.chain, s.client.Options(), ExecuteMsg{SetName: &SetName{}, Fail: &struct{}{}})
	s.ErrorIs(err, ErrMultipleVariants)
	s.Empty(s.chain.Txs()[2:])
}

func (s *ClientTestSuite) Test_ExecuteUnexpectedAnswer() {
	type otherAnswer struct {
		ViewingKey *struct {
			Key string `json:"key"`
		} `json:"viewing_key,omitempty"`
	}
	_, _, err := Execute[otherAnswer](s.ctx, s.chain, s.client.Options(), ExecuteMsg{SetName: &SetName{Name: "x"}})
	s.ErrorIs(err, types.ErrExecution)
	s.ErrorIs(err, ErrNoVariant)
}

func (s *ClientTestSuite) Test_QueryErrorResponse() {
	_, err := Query[NameResponse](s.ctx, s.chain, s.client.Address(), s.client.CodeHash(), QueryMsg{Broken: &struct{}{}})
	s.ErrorIs(err, types.ErrQuery)

	var errResp *ErrorResponse
	s.Require().ErrorAs(err, &errResp)
	s.Equal("generic_err", errResp.Kind)
	s.Equal("viewing key is wrong", errResp.Msg)
}

func (s *ClientTestSuite) Test_QueryNodeError() {
	_, err := Query[NameResponse](s.ctx, s.chain, s.client.Address(), s.client.CodeHash(), QueryMsg{Panic: &struct{}{}})
	s.ErrorIs(err, types.ErrQuery)

	_, err = Query[NameResponse](s.ctx, s.chain, s.chain.NewAddress("missing"), "", QueryMsg{Name: &struct{}{}})
	s.ErrorIs(err, types.ErrQuery)
}

func (s *ClientTestSuite) Test_QueryDecodeError() {
	_, err := Query[[]string](s.ctx, s.chain, s.client.Address(), s.client.CodeHash(), QueryMsg{Name: &struct{}{}})
	s.ErrorIs(err, types.ErrQuery)
}

func (s *ClientTestSuite) Test_ExecuteWithFunds() {
	s.chain.Fund(s.chain.Address(), math.NewInt(1_000))

	opts := s.client.Options().WithFunds("300uscrt")
	_, res, err := Execute[ExecuteAnswer](s.ctx, s.chain, opts, ExecuteMsg{SetName: &SetName{Name: "paid"}})
	s.Require().NoError(err)
	s.True(res.Succeeded())
	s.balance(s.chain.Address(), 700)
	s.balance(s.client.Address(), 300)

	_, _, err = Execute[ExecuteAnswer](s.ctx, s.chain, s.client.Options().WithFunds("5000uscrt"), ExecuteMsg{SetName: &SetName{Name: "broke"}})
	var txErr *types.TxError
	s.Require().ErrorAs(err, &txErr)
	s.Equal(chaintest.CodeInsufficientFunds, txErr.Code)
	s.balance(s.chain.Address(), 700)

	response, err := Query[NameResponse](s.ctx, s.chain, s.client.Address(), s.client.CodeHash(), QueryMsg{Name: &struct{}{}})
	s.Require().NoError(err)
	s.Equal("paid", response.Name)
}

func (s *ClientTestSuite) Test_ExecuteWrongCodeHash() {
	opts := s.client.Options().WithContract(s.client.Address(), "00")
	_, _, err := Execute[ExecuteAnswer](s.ctx, s.chain, opts, ExecuteMsg{SetName: &SetName{Name: "x"}})

	var txErr *types.TxError
	s.Require().ErrorAs(err, &txErr)
	s.Equal("code hash mismatch", txErr.Log)

	_, err = Query[NameResponse](s.ctx, s.chain, s.client.Address(), "00", QueryMsg{Name: &struct{}{}})
	s.ErrorIs(err, types.ErrQuery)
}

func (s *ClientTestSuite) balance(address string, want int64) {
	balance, err := s.chain.BalanceOf(s.ctx, address, "uscrt")
	s.Require().NoError(err)
	s.Equal(math.NewInt(want).String(), balance.String())
}
