package accounts

import "github.com/broady/surface/surfacegen/provider"

// Decls declares the manager's methods under their wire names.
func Decls() []provider.MethodDecl {
	return []provider.MethodDecl{
		{Name: "check_email_validity", Func: (*Manager).CheckEmailValidity, ParamNames: []string{"email"},
			Doc: "Checks if an email address is valid."},
		{Name: "get_provider_info", Func: (*Manager).GetProviderInfo, ParamNames: []string{"email"},
			Doc: "Returns provider information for an email address, if known."},

		{Name: "add_account", Func: (*Manager).AddAccount,
			Doc: "Adds an unconfigured account and selects it."},
		{Name: "remove_account", Func: (*Manager).RemoveAccount, ParamNames: []string{"account_id"}},
		{Name: "get_all_account_ids", Func: (*Manager).GetAllAccountIDs},
		{Name: "get_account_info", Func: (*Manager).GetAccountInfo, ParamNames: []string{"account_id"}},
		{Name: "get_all_accounts", Func: (*Manager).GetAllAccounts},
		{Name: "select_account", Func: (*Manager).SelectAccount, ParamNames: []string{"id"}},
		{Name: "get_selected_account_id", Func: (*Manager).GetSelectedAccountID},

		{Name: "is_configured", Func: (*Manager).IsConfigured, ParamNames: []string{"account_id"}},
		{Name: "get_info", Func: (*Manager).GetInfo, ParamNames: []string{"account_id"},
			Doc: "Returns diagnostic information about an account."},
		{Name: "set_config", Func: (*Manager).SetConfig, ParamNames: []string{"account_id", "key", "value"},
			Doc: "Sets a configuration value. A null value clears the key."},
		{Name: "batch_set_config", Func: (*Manager).BatchSetConfig, ParamNames: []string{"account_id", "config"}},
		{Name: "get_config", Func: (*Manager).GetConfig, ParamNames: []string{"account_id", "key"}},
		{Name: "batch_get_config", Func: (*Manager).BatchGetConfig, ParamNames: []string{"account_id", "keys"}},
		{Name: "configure", Func: (*Manager).Configure, ParamNames: []string{"account_id"},
			Doc: "Configures the account from addr and mail_pw."},
		{Name: "stop_ongoing_process", Func: (*Manager).StopOngoingProcess, ParamNames: []string{"account_id"}},

		{Name: "contacts_create_contact", Func: (*Manager).ContactsCreateContact,
			ParamNames: []string{"account_id", "email", "name"}},
		{Name: "contacts_get_contact", Func: (*Manager).ContactsGetContact,
			ParamNames: []string{"account_id", "contact_id"}},
		{Name: "contacts_block", Func: (*Manager).ContactsBlock,
			ParamNames: []string{"account_id", "contact_id"}},
		{Name: "contacts_unblock", Func: (*Manager).ContactsUnblock,
			ParamNames: []string{"account_id", "contact_id"}},
		{Name: "contacts_get_blocked", Func: (*Manager).ContactsGetBlocked,
			ParamNames: []string{"account_id"}},
		{Name: "contacts_get_contact_ids", Func: (*Manager).ContactsGetContactIDs,
			ParamNames: []string{"account_id", "list_flags", "query"}},
		{Name: "contacts_get_contacts", Func: (*Manager).ContactsGetContacts,
			ParamNames: []string{"account_id", "list_flags", "query"}},
		{Name: "contacts_get_contacts_by_ids", Func: (*Manager).ContactsGetContactsByIDs,
			ParamNames: []string{"account_id", "ids"}},
		{Name: "contacts_create_chat_by_contact_id", Func: (*Manager).ContactsCreateChatByContactID,
			ParamNames: []string{"account_id", "contact_id"}},

		{Name: "chatlist_get_full_chat_by_id", Func: (*Manager).ChatlistGetFullChatByID,
			ParamNames: []string{"account_id", "chat_id"}},
		{Name: "misc_send_text_message", Func: (*Manager).MiscSendTextMessage,
			ParamNames: []string{"account_id", "text", "chat_id"}},
		{Name: "message_get_message", Func: (*Manager).MessageGetMessage,
			ParamNames: []string{"account_id", "message_id"}},
	}
}
